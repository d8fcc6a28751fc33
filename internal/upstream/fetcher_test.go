package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstreamStub emulates the full login-then-query flow of the enrollment
// system. Listing responses are controlled per submission strategy.
type upstreamStub struct {
	primaryListing  string // POST querySubmitPath
	fallbackListing string // POST queryPagePath with Submit field
	primaryHits     int32
	fallbackHits    int32
}

func (u *upstreamStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(loginPagePath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<form name="LoginForm"></form>`))
	})
	mux.HandleFunc(loginSubmitPath, func(w http.ResponseWriter, r *http.Request) {
		writeBig5(w, "登入成功 user01")
	})
	mux.HandleFunc(querySubmitPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.primaryHits, 1)
		writeBig5(w, u.primaryListing)
	})
	mux.HandleFunc(queryPagePath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&u.fallbackHits, 1)
			writeBig5(w, u.fallbackListing)
			return
		}
		w.Write([]byte("<html>query form</html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(baseURL string) *Fetcher {
	s := NewSession(SessionOptions{
		BaseURL:     baseURL,
		Username:    "user01",
		Password:    "secret",
		BackoffBase: time.Millisecond,
		Timeout:     2 * time.Second,
	})
	return NewFetcher(s, FetcherOptions{
		BaseURL:    baseURL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
}

func TestFetchCategoryPrimaryStrategy(t *testing.T) {
	stub := &upstreamStub{
		primaryListing: "<TABLE BORDER=1>" + listingRow("7002", "PE102", "羽球初級", 1, 60, 55, "體育一B"),
	}
	srv := stub.server(t)
	f := newTestFetcher(srv.URL)

	content, err := f.FetchCategory(context.Background(), "體育")
	require.NoError(t, err)
	assert.Contains(t, content, "7002")
	// The fallback strategy never fires when the primary listing is usable.
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.fallbackHits))
}

func TestFetchCategoryFallsBackToQueryPagePost(t *testing.T) {
	stub := &upstreamStub{
		primaryListing:  "<html>empty frame</html>",
		fallbackListing: "選課編號" + listingRow("7002", "PE102", "羽球初級", 1, 60, 55, "體育一B"),
	}
	srv := stub.server(t)
	f := newTestFetcher(srv.URL)

	content, err := f.FetchCategory(context.Background(), "體育")
	require.NoError(t, err)
	assert.Contains(t, content, "7002")
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.primaryHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.fallbackHits))
}

func TestFetchCategoryNoUsableListing(t *testing.T) {
	stub := &upstreamStub{
		primaryListing:  "<html>empty frame</html>",
		fallbackListing: "<html>still nothing</html>",
	}
	srv := stub.server(t)
	f := newTestFetcher(srv.URL)

	_, err := f.FetchCategory(context.Background(), "體育")
	require.ErrorIs(t, err, ErrNetwork)
	// Both strategies ran on every attempt.
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.primaryHits))
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.fallbackHits))
}

func TestFetchCategoryRejectsUnknownCategory(t *testing.T) {
	stub := &upstreamStub{}
	srv := stub.server(t)
	f := newTestFetcher(srv.URL)

	_, err := f.FetchCategory(context.Background(), "必修")
	require.Error(t, err)
	// Rejected before any upstream traffic.
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.primaryHits))
}

func TestFetchCategoryRequiresActiveSession(t *testing.T) {
	s := NewSession(SessionOptions{
		BaseURL:     "http://127.0.0.1:1",
		Username:    "user01",
		Password:    "secret",
		BackoffBase: time.Millisecond,
		Timeout:     time.Second,
	})
	f := NewFetcher(s, FetcherOptions{BaseURL: "http://127.0.0.1:1", MaxRetries: 1, RetryDelay: time.Millisecond})

	_, err := f.FetchCategory(context.Background(), "體育")
	require.ErrorIs(t, err, ErrNetwork)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("體育"))
	assert.True(t, ValidCategory("通識"))
	assert.False(t, ValidCategory("必修"))
	assert.False(t, ValidCategory(""))
}
