package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuplot/docuplot/internal/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.pdf":
			http.NotFound(w, r)
		default:
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 fake " + r.URL.Path))
		}
	}))
}

func TestFetchAll(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "downloads")
	f, err := NewWithConfig(types.FetcherConfig{
		Dir:       dir,
		RateLimit: 100,
		Timeout:   5 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)

	urls := []string{
		server.URL + "/AMZN-Q1-2023.pdf",
		server.URL + "/AMZN-Q2-2023.pdf",
	}

	results := f.FetchAll(context.Background(), urls)
	require.Len(t, results, 2)

	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, urls[i], res.Document.SourceURL)
		assert.FileExists(t, res.Document.LocalPath)

		data, err := os.ReadFile(res.Document.LocalPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "%PDF-1.4")
	}

	assert.Equal(t, "Q1 2023", results[0].Document.Label)
	assert.Equal(t, "Q2 2023", results[1].Document.Label)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	f, err := NewWithConfig(types.FetcherConfig{
		Dir:       t.TempDir(),
		RateLimit: 100,
	}, zerolog.Nop())
	require.NoError(t, err)

	urls := []string{
		server.URL + "/Q1-report.pdf",
		server.URL + "/missing.pdf",
		server.URL + "/Q3-report.pdf",
	}

	results := f.FetchAll(context.Background(), urls)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	// Results keep input order and stay associated with their source URL.
	for i, res := range results {
		assert.Equal(t, urls[i], res.Document.SourceURL)
	}
}

func TestFetchAllProgressCallback(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var count int32
	f, err := NewWithConfig(types.FetcherConfig{
		Dir:       t.TempDir(),
		RateLimit: 100,
		OnProgress: func(string) {
			atomic.AddInt32(&count, 1)
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	urls := []string{
		server.URL + "/a.pdf",
		server.URL + "/missing.pdf",
		server.URL + "/c.pdf",
	}
	f.FetchAll(context.Background(), urls)

	// Progress fires for failures too.
	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestFetchAllDisambiguatesDuplicateBasenames(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	f, err := NewWithConfig(types.FetcherConfig{
		Dir:       t.TempDir(),
		RateLimit: 100,
	}, zerolog.Nop())
	require.NoError(t, err)

	// Three URLs sharing a base name must land in three distinct files.
	urls := []string{
		server.URL + "/2022/report.pdf",
		server.URL + "/2023/report.pdf",
		server.URL + "/2024/report.pdf",
	}

	results := f.FetchAll(context.Background(), urls)
	require.Len(t, results, 3)

	paths := make(map[string]bool)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.False(t, paths[res.Document.LocalPath], "destination %s reused", res.Document.LocalPath)
		paths[res.Document.LocalPath] = true

		// Each file holds its own URL's body, not a sibling's.
		data, err := os.ReadFile(res.Document.LocalPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), urls[i][len(server.URL):])

		assert.Equal(t, "report", res.Document.Label)
	}
}

func TestUniqueName(t *testing.T) {
	seen := map[string]bool{}
	assert.Equal(t, "report.pdf", uniqueName("report.pdf", seen))
	assert.Equal(t, "report_2.pdf", uniqueName("report.pdf", seen))
	assert.Equal(t, "report_3.pdf", uniqueName("report.pdf", seen))
	assert.Equal(t, "notes", uniqueName("notes", seen))
	assert.Equal(t, "notes_2", uniqueName("notes", seen))
}

func TestDeriveLabel(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"AMZN-Q1-2023-Earnings.pdf", "Q1 2023"},
		{"q4_2022_release.pdf", "Q4 2022"},
		{"Q2-summary.pdf", "Q2"},
		{"annual-report.pdf", "annual-report"},
		{"shareholder_letter", "shareholder_letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveLabel(tt.name))
		})
	}
}

func TestFetchAllCreatesDirectory(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	f, err := NewWithConfig(types.FetcherConfig{Dir: dir, RateLimit: 100}, zerolog.Nop())
	require.NoError(t, err)

	results := f.FetchAll(context.Background(), []string{server.URL + "/doc.pdf"})
	require.NoError(t, results[0].Err)
	assert.DirExists(t, dir)

	// Idempotent on a second run.
	results = f.FetchAll(context.Background(), []string{server.URL + "/doc.pdf"})
	require.NoError(t, results[0].Err)
}
