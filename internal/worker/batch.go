package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mapicassistant-coder/factmesh/internal/ingest"
	"github.com/mapicassistant-coder/factmesh/internal/pipeline"
)

// Runner verifies one extraction directory
type Runner interface {
	Verify(ctx context.Context, inputDir string) (*pipeline.Result, error)
}

// VerifyJob verifies a single extraction directory
type VerifyJob struct {
	Dir    string
	Runner Runner
}

// Execute runs the verification.
func (j *VerifyJob) Execute(ctx context.Context) Result {
	run, err := j.Runner.Verify(ctx, j.Dir)
	if err != nil {
		return &VerifyResult{Dir: j.Dir, Error: err}
	}
	return &VerifyResult{Dir: j.Dir, Run: run}
}

// VerifyResult is the outcome of one directory verification
type VerifyResult struct {
	Dir   string
	Run   *pipeline.Result
	Error error
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies multiple extraction directories concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessDirs verifies the given directories concurrently.
func (b *BatchProcessor) ProcessDirs(ctx context.Context, dirs []string) []*VerifyResult {
	if len(dirs) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, dir := range dirs {
		pool.Submit(&VerifyJob{Dir: dir, Runner: b.runner})
	}

	results := pool.Wait()

	verifyResults := make([]*VerifyResult, len(results))
	for i, result := range results {
		verifyResults[i] = result.(*VerifyResult)
	}

	return verifyResults
}

// ProcessParent discovers extraction directories under parent and
// verifies them all.
func (b *BatchProcessor) ProcessParent(ctx context.Context, parent string) ([]*VerifyResult, error) {
	dirs, err := DiscoverInputs(parent)
	if err != nil {
		return nil, fmt.Errorf("discover inputs: %w", err)
	}

	return b.ProcessDirs(ctx, dirs), nil
}

// DiscoverInputs lists the subdirectories of parent that hold a claims
// file, in directory-name order.
func DiscoverInputs(parent string) ([]string, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(parent, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ingest.ClaimsFile)); err != nil {
			continue
		}
		dirs = append(dirs, dir)
	}

	return dirs, nil
}
