package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affirmation-pipeline/types"
)

func TestGraphClientGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "name", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]string{"name": "My Page"})
	}))
	defer server.Close()

	var out struct {
		Name string `json:"name"`
	}
	client := newGraphClient(server.URL, "tok")
	require.NoError(t, client.getJSON(context.Background(), "/page1", url.Values{"fields": {"name"}}, &out))
	assert.Equal(t, "My Page", out.Name)
}

func TestGraphClientTransientExhaustion(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newGraphClient(server.URL, "tok")
	client.attempts = 1

	err := client.getJSON(context.Background(), "/page1", url.Values{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPublishTransport)
	assert.Equal(t, 1, hits)
}

func TestGraphClientNonTransientFailsImmediately(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "unsupported request", "code": 100},
		})
	}))
	defer server.Close()

	err := newGraphClient(server.URL, "tok").getJSON(context.Background(), "/page1", url.Values{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPublishTransport)
	// A 400 that isn't an auth error is not worth retrying
	assert.Equal(t, 1, hits)
}

func TestGraphClientAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad token", "code": 190},
		})
	}))
	defer server.Close()

	err := newGraphClient(server.URL, "tok").getJSON(context.Background(), "/page1", url.Values{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errAuth)
}
