package publish

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"affirmation-pipeline/types"
)

const facebookMaxVideoBytes = 1 << 30 // 1GB page video limit

// Facebook posts the artifact as a page video via the Graph API. The page
// access token is fetched from the user token on every publish, as the
// page token expires with it.
type Facebook struct {
	client *graphClient
	pageID string
}

func NewFacebook(baseURL, pageID, accessToken string) *Facebook {
	return &Facebook{
		client: newGraphClient(baseURL, accessToken),
		pageID: pageID,
	}
}

func (f *Facebook) Name() string { return "facebook" }

func (f *Facebook) Supports(mode types.RenderMode) bool {
	return mode == types.RenderModeVideo
}

func (f *Facebook) Publish(ctx context.Context, post *Post) types.PostResult {
	result := types.PostResult{Platform: f.Name()}

	if err := f.validate(post); err != nil {
		result.Error = err.Error()
		return result
	}

	pageToken, err := f.pageAccessToken(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	pageClient := newGraphClient(f.client.baseURL, pageToken)
	var created struct {
		ID string `json:"id"`
	}
	err = pageClient.postFile(ctx, "/"+f.pageID+"/videos", "source", post.Artifact.Path, url.Values{
		"description": {post.Caption},
		"published":   {"true"},
	}, &created)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if created.ID == "" {
		result.Error = "no post id in response"
		return result
	}

	result.Success = true
	result.PostID = created.ID
	return result
}

func (f *Facebook) validate(post *Post) error {
	fi, err := os.Stat(post.Artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: video file: %v", types.ErrValidation, err)
	}
	if !strings.EqualFold(filepath.Ext(post.Artifact.Path), ".mp4") {
		return fmt.Errorf("%w: facebook requires mp4, got %s", types.ErrValidation, filepath.Ext(post.Artifact.Path))
	}
	if fi.Size() > facebookMaxVideoBytes {
		return fmt.Errorf("%w: video is %d bytes, facebook limit is %d", types.ErrValidation, fi.Size(), facebookMaxVideoBytes)
	}
	return nil
}

func (f *Facebook) pageAccessToken(ctx context.Context) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := f.client.getJSON(ctx, "/"+f.pageID, url.Values{"fields": {"access_token"}}, &resp); err != nil {
		return "", fmt.Errorf("page access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: no page access token in response", errAuth)
	}
	return resp.AccessToken, nil
}
