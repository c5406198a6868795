package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mapicassistant-coder/factmesh/internal/cache"
	"github.com/mapicassistant-coder/factmesh/internal/match"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/pipeline"
	"github.com/mapicassistant-coder/factmesh/internal/resolver"
)

var (
	output        string
	tolerance     float64
	keywordsPath  string
	verifyTimeout time.Duration
	noCache       bool
	noFooter      bool
	jsonOut       bool
	mdOut         bool
	htmlOut       bool
	llmEnabled    bool
	llmProvider   string
	llmModel      string
	apiKey        string
	baseURL       string
	httpProxy     string
	httpsProxy    string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <input-dir>",
	Short: "Verify one extraction directory and generate consistency reports",
	Long: `Verify cross-checks a single extraction directory:
- Load narrative claims and extracted tables
- Resolve each numeric value to a table cell
- Compare claim values against table values within tolerance
- Check values shared across tables against each other
- Generate the verification graph, markdown report, and HTML dashboard

Example:
  factmesh verify input/SYC2024_Staff_Report/
  factmesh verify input/SYC2024_Staff_Report/ --output ./out --tolerance 0.1
  factmesh verify input/SYC2024_Staff_Report/ --llm --llm-model gpt-4o`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Output flags
	verifyCmd.Flags().StringVar(&output, "output", "", "output directory (default: output/<report-name>/)")
	verifyCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in markdown reports")
	verifyCmd.Flags().BoolVar(&jsonOut, "json", false, "write only the graph JSON artifact")
	verifyCmd.Flags().BoolVar(&mdOut, "md", false, "write only the markdown report")
	verifyCmd.Flags().BoolVar(&htmlOut, "html", false, "write only the HTML dashboard (flags combine)")

	// Verification flags
	verifyCmd.Flags().Float64Var(&tolerance, "tolerance", model.DefaultConfig().Tolerance, "absolute tolerance for value comparison")
	verifyCmd.Flags().StringVar(&keywordsPath, "keywords", "", "custom keyword families YAML (overrides the built-in set)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 10*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable resolver response cache")

	// Resolver flags
	verifyCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model-assisted cell resolution")
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "resolver provider (openai)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", model.DefaultConfig().Resolver.Model, "resolver model name")
	verifyCmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	verifyCmd.Flags().StringVar(&baseURL, "base-url", "", "override base URL for OpenAI-compatible endpoints")
	verifyCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	verifyCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	logger := newLogger()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	keywords, err := loadKeywords()
	if err != nil {
		return err
	}

	alternate, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	mode := "Deterministic"
	if alternate != nil {
		mode = "LLM-enhanced"
	}

	reportName := filepath.Base(filepath.Clean(inputDir))
	outDir := output
	if outDir == "" {
		outDir = filepath.Join("output", reportName)
	}

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  FactMesh Consistency Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Report: %s\n", reportName)
	fmt.Fprintf(os.Stderr, "  Mode:   %s\n", mode)
	fmt.Fprintf(os.Stderr, "  Input:  %s\n", inputDir)
	fmt.Fprintf(os.Stderr, "  Output: %s\n", outDir)
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.New(cfg, keywords, alternate, logger)

	result, err := p.Verify(ctx, inputDir)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if err := p.RenderOutputs(result, outDir, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	p.Summarize(result)
	if cfg.Output.HTML {
		fmt.Fprintf(os.Stderr, "\nDone in %s. Open %s in a browser.\n",
			result.Elapsed.Round(time.Millisecond), filepath.Join(outDir, cfg.Output.DashboardName))
	} else {
		fmt.Fprintf(os.Stderr, "\nDone in %s.\n", result.Elapsed.Round(time.Millisecond))
	}

	return nil
}

// buildConfig merges the built-in defaults with command-line flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Tolerance = tolerance
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter
	cfg.Resolver.HTTPProxy = httpProxy
	cfg.Resolver.HTTPSProxy = httpsProxy

	// Selecting any format narrows output to the selected ones.
	if jsonOut || mdOut || htmlOut {
		cfg.Output.JSON = jsonOut
		cfg.Output.Markdown = mdOut
		cfg.Output.HTML = htmlOut
	}

	if llmEnabled {
		cfg.Resolver.Provider = llmProvider
		cfg.Resolver.Model = llmModel
		cfg.Resolver.BaseURL = baseURL

		switch llmProvider {
		case "openai":
			cfg.Resolver.APIKey = apiKey
			if cfg.Resolver.APIKey == "" {
				cfg.Resolver.APIKey = os.Getenv("OPENAI_API_KEY")
			}
			if cfg.Resolver.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set (or pass --api-key)")
			}
		default:
			return nil, fmt.Errorf("unknown resolver provider: %s (supported: openai)", llmProvider)
		}
	}

	return cfg, nil
}

// loadKeywords returns the built-in keyword families, or a custom set
// when --keywords is given.
func loadKeywords() (*match.Index, error) {
	if keywordsPath == "" {
		return match.NewIndex(), nil
	}

	idx, err := match.LoadIndex(keywordsPath)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return idx, nil
}

// newResolver builds the alternate resolver and its cache store. A
// deterministic-only configuration yields nil.
func newResolver(cfg *model.Config, logger zerolog.Logger) (resolver.Resolver, error) {
	if cfg.Resolver.Provider == "" {
		return nil, nil
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("find home directory: %w", err)
			}
			dir = filepath.Join(home, ".factmesh", "cache")
		}
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
	}

	return resolver.New(cfg, store, logger)
}
