package insightsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescope/placescope/pkg/errors"
)

const rulesDoc = `{
	"best": {"label": "Top rated", "order": 1, "filter": "p.rating >= 4.3"}
}`

const boundariesDoc = `{
	"mitte": {"type": "Polygon", "coordinates": [[[13.3, 52.5], [13.4, 52.5], [13.4, 52.6], [13.3, 52.5]]]}
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFetchInsightDoc_FromFile(t *testing.T) {
	path := writeTempFile(t, "rules.json", rulesDoc)
	s := NewSource(Config{Insights: path}, nil)

	body, err := s.FetchInsightDoc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rulesDoc, string(body))
}

func TestFetchInsightDoc_FromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(rulesDoc))
	}))
	defer srv.Close()

	s := NewSource(Config{Insights: srv.URL, Timeout: 5 * time.Second}, nil)

	body, err := s.FetchInsightDoc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rulesDoc, string(body))
}

func TestFetchInsightDoc_Disabled(t *testing.T) {
	s := NewSource(Config{}, nil)

	body, err := s.FetchInsightDoc(context.Background())
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestFetchInsightDoc_MissingFile(t *testing.T) {
	s := NewSource(Config{Insights: filepath.Join(t.TempDir(), "absent.json")}, nil)

	_, err := s.FetchInsightDoc(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamRequest))
}

func TestFetchInsightDoc_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSource(Config{Insights: srv.URL}, nil)

	_, err := s.FetchInsightDoc(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamStatus))
}

func TestFetchBoundaries_PassThrough(t *testing.T) {
	path := writeTempFile(t, "districts.json", boundariesDoc)
	s := NewSource(Config{Districts: path}, nil)

	body, err := s.FetchBoundaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, boundariesDoc, string(body), "the payload is served verbatim")
}

func TestFetchBoundaries_RejectsNonObject(t *testing.T) {
	for name, doc := range map[string]string{
		"array":        `[{"mitte": {}}]`,
		"string":       `"mitte"`,
		"invalid_json": `{"mitte": `,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, "districts.json", doc)
			s := NewSource(Config{Districts: path}, nil)

			_, err := s.FetchBoundaries(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamMalformed))
		})
	}
}

func TestFetchBoundaries_Disabled(t *testing.T) {
	s := NewSource(Config{}, nil)

	body, err := s.FetchBoundaries(context.Background())
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestWatch_NoFileSources(t *testing.T) {
	s := NewSource(Config{Insights: "https://example.com/rules.json"}, nil)

	err := s.Watch(context.Background(), func(string) {
		t.Fatal("no callback expected for URL sources")
	})
	assert.NoError(t, err)
}

func TestWatch_FileChangeInvokesCallback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "rules.json")
	sibling := filepath.Join(dir, "unrelated.json")
	require.NoError(t, os.WriteFile(target, []byte(rulesDoc), 0o644))
	require.NoError(t, os.WriteFile(sibling, []byte(`{}`), 0o644))

	s := NewSource(Config{Insights: target}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(ref string) {
			mu.Lock()
			got = append(got, ref)
			mu.Unlock()
		})
	}()

	// The watcher registers asynchronously, so keep rewriting until an
	// event lands. Sibling writes must never surface.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(sibling, []byte(`{"x": 1}`), 0o644)
		_ = os.WriteFile(target, []byte(rulesDoc), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	for _, ref := range got {
		assert.Equal(t, target, ref)
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}
