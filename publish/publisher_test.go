package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affirmation-pipeline/types"
)

type fakePlatform struct {
	name     string
	modes    map[types.RenderMode]bool
	result   types.PostResult
	received *Post
}

func (f *fakePlatform) Name() string { return f.name }

func (f *fakePlatform) Supports(mode types.RenderMode) bool { return f.modes[mode] }

func (f *fakePlatform) Publish(_ context.Context, post *Post) types.PostResult {
	f.received = post
	res := f.result
	res.Platform = f.name
	return res
}

type fakeCaptionLog struct {
	rows [][2]string
	err  error
}

func (f *fakeCaptionLog) Append(_ context.Context, name, caption string) error {
	f.rows = append(f.rows, [2]string{name, caption})
	return f.err
}

func allModes() map[types.RenderMode]bool {
	return map[types.RenderMode]bool{types.RenderModeVideo: true, types.RenderModeCarousel: true}
}

func videoPost() *Post {
	return &Post{
		Artifact: &types.VideoArtifact{Name: "Growth_2026-08-24.mp4", Mode: types.RenderModeVideo},
		Remote:   &types.RemoteReference{URL: "https://bucket.s3.us-east-1.amazonaws.com/Growth_2026-08-24.mp4"},
		Caption:  "Let today be the day",
	}
}

func TestPublishAllIndependentPlatforms(t *testing.T) {
	failing := &fakePlatform{name: "facebook", modes: allModes(), result: types.PostResult{Error: "video too large"}}
	working := &fakePlatform{name: "instagram", modes: allModes(), result: types.PostResult{Success: true, PostID: "p1"}}

	results := NewPublisher([]Platform{failing, working}, nil).PublishAll(context.Background(), videoPost())

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Equal(t, "video too large", results[0].Error)
	assert.True(t, results[1].Success)
	assert.Equal(t, "p1", results[1].PostID)
	// The failure on the first platform did not stop the second
	assert.NotNil(t, working.received)
}

func TestPublishAllSkipsUnsupportedMode(t *testing.T) {
	videoOnly := &fakePlatform{name: "facebook", modes: map[types.RenderMode]bool{types.RenderModeVideo: true}}
	carousel := &fakePlatform{name: "instagram", modes: allModes(), result: types.PostResult{Success: true, PostID: "c1"}}

	post := videoPost()
	post.Artifact.Mode = types.RenderModeCarousel

	results := NewPublisher([]Platform{videoOnly, carousel}, nil).PublishAll(context.Background(), post)

	require.Len(t, results, 1)
	assert.Equal(t, "instagram", results[0].Platform)
	assert.Nil(t, videoOnly.received)
}

func TestPublishAllLogsCaptionOnSuccess(t *testing.T) {
	platform := &fakePlatform{name: "instagram", modes: allModes(), result: types.PostResult{Success: true, PostID: "p1"}}
	captions := &fakeCaptionLog{}

	post := videoPost()
	NewPublisher([]Platform{platform}, captions).PublishAll(context.Background(), post)

	require.Len(t, captions.rows, 1)
	assert.Equal(t, post.Artifact.Name, captions.rows[0][0])
	assert.Equal(t, post.Caption, captions.rows[0][1])
}

func TestPublishAllSkipsCaptionWhenNothingSucceeded(t *testing.T) {
	platform := &fakePlatform{name: "instagram", modes: allModes(), result: types.PostResult{Error: "boom"}}
	captions := &fakeCaptionLog{}

	NewPublisher([]Platform{platform}, captions).PublishAll(context.Background(), videoPost())
	assert.Empty(t, captions.rows)
}

func TestPublishAllCaptionFailureIsNotFatal(t *testing.T) {
	platform := &fakePlatform{name: "instagram", modes: allModes(), result: types.PostResult{Success: true, PostID: "p1"}}
	captions := &fakeCaptionLog{err: errors.New("sheet unavailable")}

	results := NewPublisher([]Platform{platform}, captions).PublishAll(context.Background(), videoPost())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestPublishAllNoPlatforms(t *testing.T) {
	results := NewPublisher(nil, nil).PublishAll(context.Background(), videoPost())
	assert.Empty(t, results)
}
