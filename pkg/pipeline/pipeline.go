package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/docuplot/docuplot/internal/models"
	"github.com/docuplot/docuplot/internal/types"
)

// Pipeline runs the full document-to-chart flow:
//
//	fetch+rasterize (parallel, per-document isolation)
//	-> plan (strong model, once)
//	-> extract (light model, one call per document, full join barrier)
//	-> synthesize (strong model, once)
//	-> fence parsing and optional script execution.
type Pipeline struct {
	fetcher    types.Fetcher
	rasterizer types.Rasterizer
	engine     types.Engine
	runner     types.ScriptRunner // optional
	log        zerolog.Logger
}

// Result is everything a run produced. Extractions and Combined are ordered
// by document input order regardless of completion order.
type Result struct {
	RunID       string
	Question    string
	Documents   []models.Document
	Failed      []models.FetchResult
	Extractions []models.Extraction
	Combined    string
	Narrative   string
	Code        string
	ScriptPath  string
	ExecOutput  string
	ExecErr     error
}

func New(fetcher types.Fetcher, rasterizer types.Rasterizer, engine types.Engine, runner types.ScriptRunner, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		rasterizer: rasterizer,
		engine:     engine,
		runner:     runner,
		log:        log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the pipeline for one question over the given document URLs.
// Fetch and rasterize failures exclude only the affected document; planner,
// worker and synthesis failures abort the whole run.
func (p *Pipeline) Run(ctx context.Context, runID, question string, urls []string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must be a non-empty string")
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one document URL is required")
	}

	result := &Result{RunID: runID, Question: question}

	// Stage 1: fetch, then rasterize each usable document in parallel.
	fetched := p.fetcher.FetchAll(ctx, urls)

	docs := make([]models.Document, 0, len(fetched))
	for _, fr := range fetched {
		if fr.Err != nil {
			result.Failed = append(result.Failed, fr)
			continue
		}
		docs = append(docs, fr.Document)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents could be fetched")
	}

	pages := make([][]models.PageImage, len(docs))
	rasterErrs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pages[i], rasterErrs[i] = p.rasterizer.Rasterize(ctx, docs[i])
		}(i)
	}
	wg.Wait()

	usable := make([]models.Document, 0, len(docs))
	usablePages := make([][]models.PageImage, 0, len(docs))
	for i := range docs {
		if rasterErrs[i] != nil {
			p.log.Error().Err(rasterErrs[i]).Str("label", docs[i].Label).Msg("rasterization failed, document excluded")
			result.Failed = append(result.Failed, models.FetchResult{Document: docs[i], Err: rasterErrs[i]})
			continue
		}
		usable = append(usable, docs[i])
		usablePages = append(usablePages, pages[i])
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no documents could be rasterized")
	}
	result.Documents = usable

	// Stage 2: planner. Must complete before any worker starts.
	prompt, err := p.engine.Plan(ctx, question)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("documents", len(usable)).Msg("extraction prompt ready")

	// Stage 3: worker fan-out, one request per document, joined before
	// synthesis. A worker failure cancels the rest and aborts the run.
	extractions := make([]models.Extraction, len(usable))

	g, gctx := errgroup.WithContext(ctx)
	for i := range usable {
		i := i
		g.Go(func() error {
			text, err := p.engine.Extract(gctx, prompt, usablePages[i])
			if err != nil {
				return err
			}
			extractions[i] = models.Extraction{Label: usable[i].Label, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Extractions = extractions
	result.Combined = BuildCombined(extractions)

	// Stage 4: synthesis.
	raw, err := p.engine.Synthesize(ctx, question, result.Combined)
	if err != nil {
		return nil, err
	}
	result.Code, result.Narrative = ParseFenced(raw)

	// Stage 5: persist the fragment and, only when enabled, execute it.
	// Execution failure is contained: the narrative is still returned.
	if result.Code != "" && p.runner != nil {
		path, err := p.runner.Persist(result.Code)
		if err != nil {
			p.log.Error().Err(err).Msg("failed to persist chart script")
		} else {
			result.ScriptPath = path
			if p.runner.Enabled() {
				out, err := p.runner.Execute(ctx, path)
				result.ExecOutput = out
				result.ExecErr = err
				if err != nil {
					p.log.Error().Err(err).Msg("chart script execution failed")
				}
			}
		}
	}

	return result, nil
}

// BuildCombined concatenates extractions in input order, each wrapped in a
// labeled delimiter block. The output is deterministic for a given input
// sequence no matter in which order the workers completed.
func BuildCombined(extractions []models.Extraction) string {
	var b strings.Builder
	for _, ex := range extractions {
		fmt.Fprintf(&b, "--- BEGIN %s ---\n%s\n--- END %s ---\n\n", ex.Label, strings.TrimSpace(ex.Text), ex.Label)
	}
	return strings.TrimSpace(b.String())
}
