package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affirmation-pipeline/types"
)

func reelPost() *Post {
	return &Post{
		Artifact: &types.VideoArtifact{
			Name:        "Growth_2026-08-24.mp4",
			Mode:        types.RenderModeVideo,
			SizeBytes:   5 << 20,
			DurationSec: 30,
		},
		Remote: &types.RemoteReference{
			URL: "https://bucket.s3.us-east-1.amazonaws.com/Growth_2026-08-24.mp4",
		},
		Caption: "Let today be the day",
	}
}

func carouselPost(cards int) *Post {
	urls := make([]string, cards)
	for i := range urls {
		urls[i] = "https://bucket.s3.us-east-1.amazonaws.com/card.jpg"
	}
	return &Post{
		Artifact: &types.VideoArtifact{Name: "cards", Mode: types.RenderModeCarousel},
		Remote:   &types.RemoteReference{CardURLs: urls},
		Caption:  "Swipe through",
	}
}

// graphStub answers the container lifecycle endpoints for one account
type graphStub struct {
	t            *testing.T
	statusCodes  []string // successive status_code poll answers
	polls        int
	mediaParams  []map[string]string
	publishedIDs []string
}

func (g *graphStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/page1":
			json.NewEncoder(w).Encode(map[string]any{
				"instagram_business_account": map[string]string{"id": "ig1"},
			})
		case r.Method == "POST" && r.URL.Path == "/ig1/media":
			require.NoError(g.t, r.ParseForm())
			params := map[string]string{}
			for k := range r.PostForm {
				params[k] = r.PostForm.Get(k)
			}
			g.mediaParams = append(g.mediaParams, params)
			json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
		case r.Method == "GET" && r.URL.Path == "/container-1":
			status := g.statusCodes[min(g.polls, len(g.statusCodes)-1)]
			g.polls++
			json.NewEncoder(w).Encode(map[string]string{"status_code": status})
		case r.Method == "POST" && r.URL.Path == "/ig1/media_publish":
			require.NoError(g.t, r.ParseForm())
			g.publishedIDs = append(g.publishedIDs, r.PostForm.Get("creation_id"))
			json.NewEncoder(w).Encode(map[string]string{"id": "ig-post-1"})
		default:
			g.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestInstagram(serverURL string) *Instagram {
	ig := NewInstagram(serverURL, "page1", "token")
	ig.pollInterval = time.Millisecond
	return ig
}

func TestInstagramPublishReel(t *testing.T) {
	stub := &graphStub{t: t, statusCodes: []string{"IN_PROGRESS", "FINISHED"}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	result := newTestInstagram(server.URL).Publish(context.Background(), reelPost())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "ig-post-1", result.PostID)
	assert.Equal(t, []string{"container-1"}, stub.publishedIDs)
	assert.Equal(t, 2, stub.polls)

	require.Len(t, stub.mediaParams, 1)
	assert.Equal(t, "REELS", stub.mediaParams[0]["media_type"])
	assert.Equal(t, "Let today be the day", stub.mediaParams[0]["caption"])
}

func TestInstagramPublishCarousel(t *testing.T) {
	stub := &graphStub{t: t, statusCodes: []string{"FINISHED"}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	result := newTestInstagram(server.URL).Publish(context.Background(), carouselPost(3))

	require.True(t, result.Success, result.Error)
	// Three item containers plus the carousel container
	require.Len(t, stub.mediaParams, 4)
	for _, params := range stub.mediaParams[:3] {
		assert.Equal(t, "IMAGE", params["media_type"])
		assert.Equal(t, "true", params["is_carousel_item"])
	}
	assert.Equal(t, "CAROUSEL", stub.mediaParams[3]["media_type"])
	assert.Equal(t, "container-1,container-1,container-1", stub.mediaParams[3]["children"])
}

func TestInstagramProcessingError(t *testing.T) {
	stub := &graphStub{t: t, statusCodes: []string{"ERROR"}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	result := newTestInstagram(server.URL).Publish(context.Background(), reelPost())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "process")
	assert.Empty(t, stub.publishedIDs)
}

func TestInstagramProcessingTimeout(t *testing.T) {
	stub := &graphStub{t: t, statusCodes: []string{"IN_PROGRESS"}}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	ig := newTestInstagram(server.URL)
	ig.pollAttempts = 3

	result := ig.Publish(context.Background(), reelPost())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not processed after 3 checks")
	assert.Equal(t, 3, stub.polls)
}

func TestInstagramValidation(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tests := []struct {
		name    string
		post    func() *Post
		wantErr string
	}{
		{
			name: "missing public url",
			post: func() *Post {
				p := reelPost()
				p.Remote = &types.RemoteReference{}
				return p
			},
			wantErr: "public video URL",
		},
		{
			name: "not an mp4 url",
			post: func() *Post {
				p := reelPost()
				p.Remote.URL = "https://bucket.s3.us-east-1.amazonaws.com/video.mov"
				return p
			},
			wantErr: "mp4",
		},
		{
			name: "over the reels size limit",
			post: func() *Post {
				p := reelPost()
				p.Artifact.SizeBytes = 150 << 20
				return p
			},
			wantErr: "limit",
		},
		{
			name: "too short",
			post: func() *Post {
				p := reelPost()
				p.Artifact.DurationSec = 2
				return p
			},
			wantErr: "at least",
		},
		{
			name:    "too few carousel cards",
			post:    func() *Post { return carouselPost(1) },
			wantErr: "carousel needs",
		},
		{
			name:    "too many carousel cards",
			post:    func() *Post { return carouselPost(11) },
			wantErr: "carousel needs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestInstagram(server.URL).Publish(context.Background(), tt.post())
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantErr)
		})
	}
	assert.Zero(t, requests)
}

func TestInstagramSupportsBothModes(t *testing.T) {
	ig := NewInstagram("", "page1", "token")
	assert.True(t, ig.Supports(types.RenderModeVideo))
	assert.True(t, ig.Supports(types.RenderModeCarousel))
}
