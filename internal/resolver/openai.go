package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mapicassistant-coder/factmesh/internal/cache"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/util"
)

const systemPrompt = `You are a verification assistant for economic staff reports. You match narrative claims to specific cells in statistical tables.

You receive numbered claims, each with its extracted values and variables, followed by the available tables and their data.

For each value in each claim, find the exact table cell that contains it.

Rules:
- Match by meaning, not surface form: "credit to the private sector" and "Private_Sector_Credit" are the same series.
- Column labels may carry suffixes such as "_Prel.", "_Proj.", "_Est."; the leading four digits are the year, so "2023_Proj." is year 2023.
- Published figures get rounded: values within 0.15 absolute difference are a MATCH.
- A value that is present but differs by more than 0.15 is a MISMATCH.
- A value absent from every table is NOT_FOUND. Never invent cells.
- Signs matter: -7.2 and 7.2 are different values.

Respond with a single JSON object of the form:
{"resolutions": [{"claim_id": "...", "matches": [{"variable": "...", "claim_value": "...", "year": "...", "table_id": "...", "row_label": "...", "col_label": "...", "table_value": "...", "match_status": "MATCH", "rationale": "..."}]}]}
match_status is one of MATCH, MISMATCH, NOT_FOUND. Use "" for the table fields of NOT_FOUND entries.`

// OpenAIResolver resolves claims through the OpenAI chat completions
// API. Requests are batched, rate limited and cached; a failed batch
// downgrades its claims to NOT_FOUND instead of failing the run.
type OpenAIResolver struct {
	client  *openai.Client
	cfg     model.ResolverConfig
	limiter *rate.Limiter
	store   cache.Cache // nil disables caching
	log     zerolog.Logger
}

// NewOpenAIResolver creates a resolver from the configuration. The API
// key falls back to OPENAI_API_KEY.
func NewOpenAIResolver(cfg *model.Config, store cache.Cache, log zerolog.Logger) (*OpenAIResolver, error) {
	rc := cfg.Resolver
	if rc.APIKey == "" {
		rc.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if rc.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set --api-key or OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(rc.APIKey)
	if rc.BaseURL != "" {
		clientConfig.BaseURL = rc.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: rc.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(rc.HTTPProxy, rc.HTTPSProxy, rc.NoProxy),
		},
	}

	return &OpenAIResolver{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     rc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimiting.RequestsPerSecond), cfg.RateLimiting.BurstSize),
		store:   store,
		log:     log.With().Str("component", "resolver").Logger(),
	}, nil
}

// Name returns the provider name.
func (r *OpenAIResolver) Name() string {
	return "openai"
}

// Resolve processes claims carrying numeric values in fixed-size
// batches. Qualitative claims are skipped. Resolutions accumulated
// before a context cancellation are returned alongside the error.
func (r *OpenAIResolver) Resolve(ctx context.Context, claims []model.Claim, tables *model.TableSet) ([]ClaimResolution, error) {
	var numeric []model.Claim
	for _, c := range claims {
		if len(c.Values) > 0 {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) == 0 {
		return nil, nil
	}

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	r.log.Info().
		Int("claims", len(numeric)).
		Int("tables", tables.Len()).
		Str("model", r.cfg.Model).
		Msg("resolving claims")

	var out []ClaimResolution
	for start := 0; start < len(numeric); start += batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		end := start + batchSize
		if end > len(numeric) {
			end = len(numeric)
		}
		batch := numeric[start:end]
		resolved := r.resolveBatch(ctx, batch, tables)
		out = append(out, resolved...)
		r.log.Debug().
			Int("from", start).
			Int("to", end).
			Int("resolved", len(resolved)).
			Msg("batch done")
	}
	return out, nil
}

// resolveBatch answers one batch from cache or the API. Any failure
// downgrades every mention in the batch to NOT_FOUND with the cause in
// its rationale; callers then fall through to deterministic search.
func (r *OpenAIResolver) resolveBatch(ctx context.Context, batch []model.Claim, tables *model.TableSet) []ClaimResolution {
	prompt := buildPrompt(batch, contextTables(batch, tables, r.cfg.CoreTables), r.cfg.MaxContextRows)
	key := cache.Key([]byte(r.cfg.Model + "\x00" + prompt))

	if r.store != nil {
		if data, ok := r.store.Get(key); ok {
			if cached, err := decodeResolutions(data); err == nil {
				r.log.Debug().Msg("cache hit")
				return cached
			}
			_ = r.store.Delete(key)
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return downgradeBatch(batch, err)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// The client omits a zero temperature from the payload, so send
		// the smallest value it will serialize.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.log.Error().Err(err).Int("claims", len(batch)).Msg("batch failed")
		return downgradeBatch(batch, fmt.Errorf("OpenAI API error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return downgradeBatch(batch, fmt.Errorf("no response from OpenAI"))
	}

	resolved, err := decodeResolutions([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		r.log.Error().Err(err).Msg("malformed response")
		return downgradeBatch(batch, fmt.Errorf("malformed resolver response: %w", err))
	}

	if r.store != nil {
		if data, err := encodeResolutions(resolved); err == nil {
			if err := r.store.Set(key, data, 0); err != nil {
				r.log.Warn().Err(err).Msg("cache write failed")
			}
		}
	}
	return resolved
}

type batchResolution struct {
	Resolutions []ClaimResolution `json:"resolutions"`
}

func decodeResolutions(data []byte) ([]ClaimResolution, error) {
	var b batchResolution
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b.Resolutions, nil
}

func encodeResolutions(resolutions []ClaimResolution) ([]byte, error) {
	return json.Marshal(batchResolution{Resolutions: resolutions})
}

// downgradeBatch turns every value mention of the failed batch into a
// NOT_FOUND verdict carrying the cause.
func downgradeBatch(batch []model.Claim, cause error) []ClaimResolution {
	out := make([]ClaimResolution, 0, len(batch))
	for _, c := range batch {
		matches := make([]CellMatch, 0, len(c.Values))
		for _, v := range c.Values {
			matches = append(matches, CellMatch{
				Variable:   v.Variable,
				ClaimValue: v.Value,
				Year:       v.Year,
				Status:     StatusNotFound,
				Rationale:  fmt.Sprintf("resolution failed: %v", cause),
			})
		}
		out = append(out, ClaimResolution{ClaimID: c.ID, Matches: matches})
	}
	return out
}
