package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherConditionalAndFallback(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "team", URL: srv.URL + "/private/token.ics"}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feed, string(first.Body))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feed, string(second.Body))

	failing.Store(true)
	third, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, feed, string(third.Body))

	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	_, err := f.Fetch(context.Background(), Source{ID: "x", URL: srv.URL})
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), Source{ID: "empty"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)",
		redactURL("https://calendar.example.com/ical/secret-token/basic.ics?key=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
