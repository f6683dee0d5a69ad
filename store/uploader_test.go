package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affirmation-pipeline/types"
)

// fakeObjectStore fails its first `failures` puts, then succeeds
type fakeObjectStore struct {
	name      string
	failures  int
	permanent bool
	keys      []string
	makeRef   func(key string) *types.RemoteReference
}

func (f *fakeObjectStore) Name() string { return f.name }

func (f *fakeObjectStore) Put(_ context.Context, key, _, _ string) (*types.RemoteReference, error) {
	f.keys = append(f.keys, key)
	if f.failures > 0 {
		f.failures--
		if f.permanent {
			return nil, &PermanentError{Err: errors.New("access denied")}
		}
		return nil, errors.New("connection reset")
	}
	return f.makeRef(key), nil
}

func s3Ref(key string) *types.RemoteReference {
	return &types.RemoteReference{Key: key, URL: "https://bucket.s3.us-east-1.amazonaws.com/" + key}
}

func driveRef(string) *types.RemoteReference {
	return &types.RemoteReference{DriveFileID: "drive-123"}
}

func videoArtifact() *types.VideoArtifact {
	return &types.VideoArtifact{
		Path: "/tmp/Growth_2026-08-24.mp4",
		Name: "Growth_2026-08-24.mp4",
		Mode: types.RenderModeVideo,
	}
}

func TestUploadMergesStoreReferences(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", makeRef: s3Ref}
	drive := &fakeObjectStore{name: "drive", makeRef: driveRef}

	ref, err := NewUploader(s3, drive).Upload(context.Background(), videoArtifact())
	require.NoError(t, err)

	assert.Equal(t, "Growth_2026-08-24.mp4", ref.Key)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/Growth_2026-08-24.mp4", ref.URL)
	assert.Equal(t, "drive-123", ref.DriveFileID)
	// The key is the artifact name, so a repeat upload overwrites in place
	assert.Equal(t, []string{"Growth_2026-08-24.mp4"}, s3.keys)
}

func TestUploadRetriesTransientFailure(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", failures: 1, makeRef: s3Ref}

	ref, err := NewUploader(s3).Upload(context.Background(), videoArtifact())
	require.NoError(t, err)
	assert.NotEmpty(t, ref.URL)
	assert.Len(t, s3.keys, 2)
}

func TestUploadExhaustsRetries(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", failures: 10, makeRef: s3Ref}
	u := &Uploader{stores: []ObjectStore{s3}, attempts: 1}

	ref, err := u.Upload(context.Background(), videoArtifact())
	require.Error(t, err)
	assert.Nil(t, ref)
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.Len(t, s3.keys, 1)
}

func TestUploadPermanentErrorShortCircuits(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", failures: 10, permanent: true, makeRef: s3Ref}

	_, err := NewUploader(s3).Upload(context.Background(), videoArtifact())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.Contains(t, err.Error(), "access denied")
	// No retry on a credentials problem
	assert.Len(t, s3.keys, 1)
}

func TestUploadCarouselCards(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", makeRef: s3Ref}
	artifact := &types.VideoArtifact{
		Path: "/tmp/growth_carousel/card_01.jpg",
		Name: "Growth_2026-08-24_carousel",
		Mode: types.RenderModeCarousel,
		Cards: []string{
			"/tmp/growth_carousel/card_01.jpg",
			"/tmp/growth_carousel/card_02.jpg",
			"/tmp/growth_carousel/card_03.jpg",
		},
	}

	ref, err := NewUploader(s3).Upload(context.Background(), artifact)
	require.NoError(t, err)

	require.Len(t, ref.CardURLs, 3)
	assert.Equal(t, []string{
		"Growth_2026-08-24_carousel_card_01.jpg",
		"Growth_2026-08-24_carousel_card_02.jpg",
		"Growth_2026-08-24_carousel_card_03.jpg",
	}, s3.keys)
	for i, u := range ref.CardURLs {
		assert.Equal(t, fmt.Sprintf("https://bucket.s3.us-east-1.amazonaws.com/Growth_2026-08-24_carousel_card_%02d.jpg", i+1), u)
	}
}

func TestUploadCarouselCardFailureAborts(t *testing.T) {
	s3 := &fakeObjectStore{name: "s3", failures: 10, permanent: true, makeRef: s3Ref}
	artifact := &types.VideoArtifact{
		Name:  "cards",
		Mode:  types.RenderModeCarousel,
		Cards: []string{"/tmp/card_01.jpg", "/tmp/card_02.jpg"},
	}

	_, err := NewUploader(s3).Upload(context.Background(), artifact)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.Len(t, s3.keys, 1)
}
