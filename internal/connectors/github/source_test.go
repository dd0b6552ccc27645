package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned GitHub REST responses for acme/widgets.
type fakeAPI struct {
	mu          sync.Mutex
	lastSearch  string
	lastAuth    string
	commentHits int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Limit", "5000")

	switch r.URL.Path {
	case "/repos/acme/widgets/issues":
		_, _ = w.Write([]byte(`[
			{"number":3,"title":"Crash on start","body":"It crashes.","state":"open",
			 "html_url":"https://github.com/acme/widgets/issues/3","updated_at":"2024-03-03T00:00:00Z",
			 "user":{"login":"ann"},"labels":[{"name":"bug"}]},
			{"number":2,"title":"A PR","state":"open","updated_at":"2024-03-02T00:00:00Z",
			 "pull_request":{"url":"https://api.github.com/repos/acme/widgets/pulls/2"}},
			{"number":1,"title":"Old issue","body":"old","state":"closed","updated_at":"2024-01-01T00:00:00Z"}
		]`))
	case "/repos/acme/widgets/pulls":
		_, _ = w.Write([]byte(`[
			{"number":2,"title":"Fix crash","body":"Fixes #3","state":"closed","merged_at":"2024-03-02T12:00:00Z",
			 "html_url":"https://github.com/acme/widgets/pull/2","updated_at":"2024-03-02T12:00:00Z",
			 "user":{"login":"bob"}}
		]`))
	case "/repos/acme/widgets/issues/3/comments", "/repos/acme/widgets/issues/2/comments", "/repos/acme/widgets/issues/1/comments":
		f.mu.Lock()
		f.commentHits++
		f.mu.Unlock()
		_, _ = w.Write([]byte(`[{"body":"Same here","user":{"login":"cat"}}]`))
	case "/search/issues":
		f.mu.Lock()
		f.lastSearch = r.URL.Query().Get("q")
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"total_count":1,"items":[
			{"number":3,"title":"Crash on start","body":"It crashes.","state":"open","updated_at":"2024-03-03T00:00:00Z"}
		]}`))
	case "/repos/acme/missing/issues":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestSource(t *testing.T, cfg Config) (*Source, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	if cfg.Owner == "" {
		cfg.Owner, cfg.Repo = "acme", "widgets"
	}
	cfg.BaseURL = srv.URL
	src, err := New(context.Background(), cfg)
	require.NoError(t, err)
	// Keep tests fast.
	src.client.limiter = NewRateLimiter(1000)
	return src, api
}

func TestSource_FetchMergesIssuesAndPulls(t *testing.T) {
	src, api := newTestSource(t, Config{Token: "tok"})

	items, err := src.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "issue/3", items[0].ID)
	assert.Equal(t, "#3 Crash on start", items[0].Title)
	assert.Contains(t, items[0].Body, "It crashes.")
	assert.Contains(t, items[0].Body, "Labels: bug")
	assert.Contains(t, items[0].Body, "Author: ann")
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())

	assert.Equal(t, "pull/2", items[1].ID)
	assert.Contains(t, items[1].Body, "State: merged")
	assert.Equal(t, "https://github.com/acme/widgets/pull/2", items[1].URL)

	assert.Equal(t, "issue/1", items[2].ID)
	assert.Equal(t, "Bearer tok", api.lastAuth)
	assert.Zero(t, api.commentHits)
}

func TestSource_FetchLimitAndTypes(t *testing.T) {
	src, _ := newTestSource(t, Config{ContentTypes: []ContentType{ContentIssues}})

	items, err := src.Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "issue/3", items[0].ID)
}

func TestSource_FetchWithComments(t *testing.T) {
	src, api := newTestSource(t, Config{ContentTypes: []ContentType{ContentIssues}, Comments: true})

	items, err := src.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, strings.HasSuffix(items[0].Body, "cat: Same here"))
	assert.Equal(t, 2, api.commentHits)
}

func TestSource_FetchNotFound(t *testing.T) {
	src, _ := newTestSource(t, Config{Owner: "acme", Repo: "missing", ContentTypes: []ContentType{ContentIssues}})

	_, err := src.Fetch(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSource_Search(t *testing.T) {
	src, api := newTestSource(t, Config{})

	items, err := src.Search(context.Background(), " crash ", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "issue/3", items[0].ID)
	assert.Equal(t, "crash repo:acme/widgets", api.lastSearch)

	src.cfg.ContentTypes = []ContentType{ContentPRs}
	_, err = src.Search(context.Background(), "crash", 5)
	require.NoError(t, err)
	assert.Equal(t, "crash repo:acme/widgets is:pr", api.lastSearch)
}

func TestNew_RequiresRepo(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrInvalidRepo)
}
