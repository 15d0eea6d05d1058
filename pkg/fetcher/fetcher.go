package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/docuplot/docuplot/internal/models"
	"github.com/docuplot/docuplot/internal/types"
)

// Fetcher downloads source documents into a local directory. Each download
// succeeds or fails on its own; siblings are never aborted.
type Fetcher struct {
	config  types.FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewWithConfig(config types.FetcherConfig, log zerolog.Logger) (*Fetcher, error) {
	if config.Dir == "" {
		config.Dir = "downloads"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     log.With().Str("component", "fetcher").Logger(),
	}, nil
}

func New(dir string) *Fetcher {
	f, _ := NewWithConfig(types.FetcherConfig{Dir: dir}, zerolog.Nop())
	return f
}

// FetchAll retrieves every URL concurrently and returns one result per URL in
// input order. The destination directory is created if absent.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []models.FetchResult {
	results := make([]models.FetchResult, len(urls))

	if err := os.MkdirAll(f.config.Dir, 0o755); err != nil {
		for i, u := range urls {
			results[i] = models.FetchResult{
				Document: models.Document{SourceURL: u},
				Err:      fmt.Errorf("failed to create download directory: %w", err),
			}
		}
		return results
	}

	// Destination names are resolved up front so two URLs sharing a base name
	// never write to the same file. Labels still come from the original name.
	names := make([]string, len(urls))
	labels := make([]string, len(urls))
	nameErrs := make([]error, len(urls))
	seen := make(map[string]bool, len(urls))
	for i, u := range urls {
		name, err := localName(u)
		if err != nil {
			nameErrs[i] = err
			continue
		}
		labels[i] = DeriveLabel(name)
		names[i] = uniqueName(name, seen)
	}

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			if nameErrs[i] != nil {
				results[i] = models.FetchResult{
					Document: models.Document{SourceURL: u},
					Err:      nameErrs[i],
				}
				if f.config.OnProgress != nil {
					f.config.OnProgress(u)
				}
				return
			}
			doc, err := f.fetchOne(ctx, u, names[i], labels[i])
			if err != nil {
				f.log.Error().Err(err).Str("url", u).Msg("fetch failed")
			} else {
				f.log.Debug().Str("url", u).Str("path", doc.LocalPath).Msg("fetched")
			}
			results[i] = models.FetchResult{Document: doc, Err: err}
			if f.config.OnProgress != nil {
				f.config.OnProgress(u)
			}
		}(i, u)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL, name, label string) (models.Document, error) {
	doc := models.Document{SourceURL: rawURL, Label: label}

	if err := f.limiter.Wait(ctx); err != nil {
		return doc, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return doc, fmt.Errorf("invalid request for %s: %w", rawURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return doc, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	dest := filepath.Join(f.config.Dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return doc, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(dest)
		return doc, fmt.Errorf("failed to write %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		os.Remove(dest)
		return doc, fmt.Errorf("failed to write %s: %w", dest, closeErr)
	}

	doc.LocalPath = dest
	return doc, nil
}

func localName(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive a file name from %s", rawURL)
	}
	return name, nil
}

func uniqueName(name string, seen map[string]bool) string {
	if !seen[name] {
		seen[name] = true
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}

var quarterRe = regexp.MustCompile(`(?i)\b(q[1-4])[-_. ]?((?:19|20)\d{2})?\b`)

// DeriveLabel extracts a short document identifier from a file name. Quarter
// tokens win (e.g. "AMZN-Q3-2023.pdf" -> "Q3 2023"); otherwise the base name
// without extension is used.
func DeriveLabel(name string) string {
	if m := quarterRe.FindStringSubmatch(name); m != nil {
		label := strings.ToUpper(m[1])
		if m[2] != "" {
			label += " " + m[2]
		}
		return label
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
