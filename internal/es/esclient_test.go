package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/pokedex/internal/models"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (f *fakeCluster) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_source":{"id":25,"name":"Pikachu"}},{"_source":{"id":26,"name":"Raichu"}}]}}`))
	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/404"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}
}

func newTestIndex(t *testing.T) (*Index, *fakeCluster) {
	t.Helper()

	f := &fakeCluster{}
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	ix, err := NewIndex(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)
	return ix, f
}

func TestIndex_PutAndRemove(t *testing.T) {
	t.Parallel()

	ix, f := newTestIndex(t)
	ctx := context.Background()

	doc := DocumentFrom(&models.Pokemon{ID: 25, Name: "Pikachu", Types: "Electric", Rating: 7})
	require.NoError(t, ix.Put(ctx, doc))
	require.NoError(t, ix.Remove(ctx, 25))
	require.NoError(t, ix.Remove(ctx, 404))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.requests, "PUT /pokemon/_doc/25")
	assert.Contains(t, f.requests, "DELETE /pokemon/_doc/25")

	var sent Document
	for i, r := range f.requests {
		if r == "PUT /pokemon/_doc/25" {
			require.NoError(t, json.Unmarshal([]byte(f.bodies[i]), &sent))
		}
	}
	assert.Equal(t, "Pikachu", sent.Name)
	assert.Equal(t, 7.0, sent.Rating)
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	ix, _ := newTestIndex(t)

	total, ids, err := ix.Search(context.Background(), "pika", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []uint{25, 26}, ids)
}

func TestNewIndex_Unavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := NewIndex(context.Background(), Config{URL: srv.URL})
	assert.ErrorIs(t, err, ErrUnavailable)
}
