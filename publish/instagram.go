package publish

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"affirmation-pipeline/types"
)

const (
	instagramMaxVideoBytes = 100 << 20 // Reels upload cap
	instagramMinVideoSec   = 3.0
	instagramMaxCards      = 10
	instagramMinCards      = 2
)

// Instagram publishes through the two-phase Graph flow: create a media
// container (from a public URL), wait for processing, then publish it.
// Video artifacts become Reels; carousel artifacts become a CAROUSEL
// container with one child per card.
type Instagram struct {
	client       *graphClient
	pageID       string
	pollInterval time.Duration
	pollAttempts int
}

func NewInstagram(baseURL, pageID, accessToken string) *Instagram {
	return &Instagram{
		client:       newGraphClient(baseURL, accessToken),
		pageID:       pageID,
		pollInterval: 8 * time.Second,
		pollAttempts: 20,
	}
}

func (ig *Instagram) Name() string { return "instagram" }

func (ig *Instagram) Supports(types.RenderMode) bool { return true }

func (ig *Instagram) Publish(ctx context.Context, post *Post) types.PostResult {
	result := types.PostResult{Platform: ig.Name()}

	if err := ig.validate(post); err != nil {
		result.Error = err.Error()
		return result
	}

	accountID, err := ig.businessAccountID(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var creationID string
	if post.Artifact.Mode == types.RenderModeCarousel {
		creationID, err = ig.createCarousel(ctx, accountID, post)
	} else {
		creationID, err = ig.createReel(ctx, accountID, post)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := ig.waitForProcessing(ctx, creationID); err != nil {
		result.Error = err.Error()
		return result
	}

	var published struct {
		ID string `json:"id"`
	}
	err = ig.client.postForm(ctx, "/"+accountID+"/media_publish", url.Values{
		"creation_id": {creationID},
	}, &published)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if published.ID == "" {
		result.Error = "no post id in publish response"
		return result
	}

	result.Success = true
	result.PostID = published.ID
	return result
}

func (ig *Instagram) validate(post *Post) error {
	if post.Artifact.Mode == types.RenderModeCarousel {
		n := len(post.Remote.CardURLs)
		if n < instagramMinCards || n > instagramMaxCards {
			return fmt.Errorf("%w: carousel needs %d-%d public card URLs, have %d",
				types.ErrValidation, instagramMinCards, instagramMaxCards, n)
		}
		return nil
	}
	if post.Remote == nil || post.Remote.URL == "" {
		return fmt.Errorf("%w: instagram needs a public video URL (S3 upload required)", types.ErrValidation)
	}
	if !strings.HasSuffix(strings.ToLower(post.Remote.URL), ".mp4") {
		return fmt.Errorf("%w: instagram requires an mp4 URL, got %s", types.ErrValidation, post.Remote.URL)
	}
	if post.Artifact.SizeBytes > instagramMaxVideoBytes {
		return fmt.Errorf("%w: video is %d bytes, reels limit is %d",
			types.ErrValidation, post.Artifact.SizeBytes, instagramMaxVideoBytes)
	}
	if post.Artifact.DurationSec < instagramMinVideoSec {
		return fmt.Errorf("%w: video is %.1fs, reels need at least %.0fs",
			types.ErrValidation, post.Artifact.DurationSec, instagramMinVideoSec)
	}
	return nil
}

func (ig *Instagram) businessAccountID(ctx context.Context) (string, error) {
	var resp struct {
		InstagramBusinessAccount struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	err := ig.client.getJSON(ctx, "/"+ig.pageID, url.Values{
		"fields": {"instagram_business_account"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("instagram business account: %w", err)
	}
	if resp.InstagramBusinessAccount.ID == "" {
		return "", fmt.Errorf("%w: no instagram business account linked to page %s", errAuth, ig.pageID)
	}
	return resp.InstagramBusinessAccount.ID, nil
}

func (ig *Instagram) createReel(ctx context.Context, accountID string, post *Post) (string, error) {
	var container struct {
		ID string `json:"id"`
	}
	err := ig.client.postForm(ctx, "/"+accountID+"/media", url.Values{
		"media_type": {"REELS"},
		"video_url":  {post.Remote.URL},
		"caption":    {post.Caption},
	}, &container)
	if err != nil {
		return "", fmt.Errorf("create reel container: %w", err)
	}
	if container.ID == "" {
		return "", fmt.Errorf("no creation id in container response")
	}
	return container.ID, nil
}

func (ig *Instagram) createCarousel(ctx context.Context, accountID string, post *Post) (string, error) {
	var children []string
	for i, cardURL := range post.Remote.CardURLs {
		var item struct {
			ID string `json:"id"`
		}
		err := ig.client.postForm(ctx, "/"+accountID+"/media", url.Values{
			"media_type":       {"IMAGE"},
			"image_url":        {cardURL},
			"is_carousel_item": {"true"},
		}, &item)
		if err != nil {
			return "", fmt.Errorf("create carousel item %d: %w", i+1, err)
		}
		if item.ID == "" {
			return "", fmt.Errorf("no id for carousel item %d", i+1)
		}
		children = append(children, item.ID)
	}

	var container struct {
		ID string `json:"id"`
	}
	err := ig.client.postForm(ctx, "/"+accountID+"/media", url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {post.Caption},
	}, &container)
	if err != nil {
		return "", fmt.Errorf("create carousel container: %w", err)
	}
	if container.ID == "" {
		return "", fmt.Errorf("no creation id in carousel response")
	}
	return container.ID, nil
}

// waitForProcessing polls the container until Instagram finishes
// transcoding the media or reports an error
func (ig *Instagram) waitForProcessing(ctx context.Context, creationID string) error {
	for attempt := 1; attempt <= ig.pollAttempts; attempt++ {
		var status struct {
			StatusCode string `json:"status_code"`
		}
		err := ig.client.getJSON(ctx, "/"+creationID, url.Values{
			"fields": {"status_code"},
		}, &status)
		if err != nil {
			return fmt.Errorf("container status: %w", err)
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("%w: instagram failed to process the media", types.ErrPublishTransport)
		}
		log.Printf("[publish] Instagram still processing... (attempt %d/%d)", attempt, ig.pollAttempts)
		select {
		case <-time.After(ig.pollInterval):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", types.ErrPublishTransport, ctx.Err())
		}
	}
	return fmt.Errorf("%w: media not processed after %d checks", types.ErrPublishTransport, ig.pollAttempts)
}
