// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(types.HTTPConfig{RequestsPerSecond: -1, UserAgent: "harvest-test/1"})
}

func TestFetcher_GetTextSetsUserAgent(t *testing.T) {
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	text, err := newTestFetcher().GetText(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "harvest-test/1", ua)
}

func TestFetcher_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestFetcher().GetBytes(context.Background(), ts.URL+"/missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetcher_DocumentDecodesLatin1(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Müller" in Latin-1.
		w.Write([]byte("<html><body><p class=\"a\">M\xfcller</p></body></html>"))
	}))
	defer ts.Close()

	doc, err := newTestFetcher().Document(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "Müller", doc.Find("p.a").Text())
}

func TestFetcher_SerializesPerHost(t *testing.T) {
	var inFlight, peak int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := newTestFetcher()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.GetBytes(context.Background(), ts.URL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestFetcher_StreamReleasesSlotOnClose(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("%PDF-1.4 body"))
	}))
	defer ts.Close()

	f := newTestFetcher()
	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		n, err := f.Stream(context.Background(), ts.URL, &buf)
		require.NoError(t, err)
		assert.Equal(t, int64(13), n)
	}
}

func TestClient_GetJSONAndPostForm(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/search":
			assert.Equal(t, "cats", r.URL.Query().Get("term"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"count":"2"}`))
		case "/":
			assert.NoError(t, r.ParseForm())
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("got " + r.PostForm.Get("request")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewClient(newTestFetcher(), ts.URL+"/")
	var out struct {
		Count string `json:"count"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "api/search", url.Values{"term": {"cats"}}, &out))
	assert.Equal(t, "2", out.Count)

	body, ct, err := c.PostForm(context.Background(), "/", url.Values{"request": {"abc"}})
	require.NoError(t, err)
	assert.Equal(t, "got abc", string(body))
	assert.Equal(t, "text/plain", ct)
}
