package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/pipeline"
	"github.com/mapicassistant-coder/factmesh/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <parent-dir>",
	Short: "Verify multiple extraction directories in parallel",
	Long: `Batch verifies every extraction directory found under a parent
directory:
- Discover subdirectories holding a narrative claims file
- Verify them in parallel with a configurable worker count
- Write each report's artifacts into its own output directory

Example:
  factmesh batch input/
  factmesh batch input/ --concurrency 4 --output-dir ./reports
  factmesh batch input/ --llm --llm-model gpt-4o`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./factmesh-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Inherit flags from verify command
	batchCmd.Flags().Float64Var(&tolerance, "tolerance", model.DefaultConfig().Tolerance, "absolute tolerance for value comparison")
	batchCmd.Flags().StringVar(&keywordsPath, "keywords", "", "custom keyword families YAML (overrides the built-in set)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable resolver response cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in markdown reports")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Resolver flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model-assisted cell resolution")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "resolver provider (openai)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", model.DefaultConfig().Resolver.Model, "resolver model name")
	batchCmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	parent := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  FactMesh Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", parent)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)

	logger := newLogger()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency

	if llmEnabled {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", llmProvider, llmModel)
	}
	fmt.Fprintf(os.Stderr, "\n")

	keywords, err := loadKeywords()
	if err != nil {
		return err
	}

	alternate, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	// Create output directory
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.New(cfg, keywords, alternate, logger)
	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Discovering extraction directories...\n")
	dirs, err := worker.DiscoverInputs(parent)
	if err != nil {
		return fmt.Errorf("discover inputs: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Found %d extraction directories\n", len(dirs))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Verifying with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	results := processor.ProcessDirs(ctx, dirs)

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Dir, result.Error)
			continue
		}

		runDir := filepath.Join(outputDir, result.Run.Name())
		if err := p.RenderOutputs(result.Run, runDir, false); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write reports: %v\n", result.Run.Name(), err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (match rate: %d%%)\n", result.Run.Name(), matchRate(result.Run))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d reports\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// matchRate computes the percent of numeric values that matched.
func matchRate(result *pipeline.Result) int {
	s := result.Graph.Summary()
	total := s.Match + s.Mismatch + s.Unverifiable
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Match) / float64(total) * 100))
}
