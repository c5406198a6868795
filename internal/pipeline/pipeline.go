package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapicassistant-coder/factmesh/internal/graph"
	"github.com/mapicassistant-coder/factmesh/internal/ingest"
	"github.com/mapicassistant-coder/factmesh/internal/match"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/resolver"
)

// Pipeline orchestrates a complete verification run: load the
// extraction output, build the graph, render the artifacts.
type Pipeline struct {
	builder  *graph.Builder
	renderer *Renderer
	config   *model.Config
	log      zerolog.Logger
}

// New creates a pipeline with the given configuration. alternate may
// be nil for deterministic-only verification.
func New(cfg *model.Config, keywords *match.Index, alternate resolver.Resolver, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		builder:  graph.NewBuilder(cfg, keywords, alternate, log),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Result contains a finished verification run
type Result struct {
	InputDir string
	Graph    *model.Graph
	Elapsed  time.Duration
}

// Name returns the report name, taken from the input directory.
func (r *Result) Name() string {
	return filepath.Base(filepath.Clean(r.InputDir))
}

// Verify runs the pipeline over one extraction directory.
func (p *Pipeline) Verify(ctx context.Context, inputDir string) (*Result, error) {
	started := time.Now()

	in, err := ingest.LoadInput(inputDir)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	p.log.Info().
		Str("dir", inputDir).
		Int("claims", len(in.Claims)).
		Int("tables", in.Tables.Len()).
		Msg("input loaded")

	g := p.builder.Build(ctx, in.Claims, in.Tables)

	return &Result{
		InputDir: inputDir,
		Graph:    g,
		Elapsed:  time.Since(started),
	}, nil
}

// RenderOutputs writes the enabled artifacts into outDir: graph JSON,
// markdown report, HTML dashboard.
func (p *Pipeline) RenderOutputs(result *Result, outDir string, verbose bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if p.config.Output.JSON {
		graphPath := filepath.Join(outDir, p.config.Output.GraphName)
		if err := p.renderer.RenderJSON(result.Graph, graphPath); err != nil {
			return fmt.Errorf("render graph: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote graph: %s\n", graphPath)
		}
	}

	if p.config.Output.Markdown {
		reportPath := filepath.Join(outDir, p.config.Output.ReportName)
		if err := p.renderer.RenderMarkdown(result.Graph, result.Name(), reportPath); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote report: %s\n", reportPath)
		}
	}

	if p.config.Output.HTML {
		dashboardPath := filepath.Join(outDir, p.config.Output.DashboardName)
		if err := p.renderer.RenderHTML(result.Graph, result.Name(), dashboardPath); err != nil {
			return fmt.Errorf("render dashboard: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote dashboard: %s\n", dashboardPath)
		}
	}
	return nil
}

// Summarize prints the run counts for a finished result.
func (p *Pipeline) Summarize(result *Result) {
	p.renderer.RenderSummary(result.Graph)
}
