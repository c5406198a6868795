package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/mapicassistant-coder/factmesh/internal/ingest"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/pipeline"
)

// MockRunner implements Runner
type MockRunner struct {
	ShouldError bool
}

func (m *MockRunner) Verify(ctx context.Context, inputDir string) (*pipeline.Result, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, errors.New("verify error")
	}
	return &pipeline.Result{
		InputDir: inputDir,
		Graph:    model.NewGraph(),
	}, nil
}

func TestBatchProcessor_ProcessDirs(t *testing.T) {
	runner := &MockRunner{}
	processor := NewBatchProcessor(runner, 2)

	dirs := []string{"report_a", "report_b", "report_c"}
	results := processor.ProcessDirs(context.Background(), dirs)

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	successCount := 0
	for _, res := range results {
		if res.Error == nil {
			successCount++
			if res.Run == nil {
				t.Error("expected run result for successful verification")
			}
		} else {
			t.Errorf("unexpected error for %s: %v", res.Dir, res.Error)
		}
	}

	if successCount != 3 {
		t.Errorf("expected 3 successes, got %d", successCount)
	}
}

func TestBatchProcessor_ProcessDirs_Error(t *testing.T) {
	runner := &MockRunner{ShouldError: true}
	processor := NewBatchProcessor(runner, 2)

	results := processor.ProcessDirs(context.Background(), []string{"report_a"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Run != nil {
		t.Error("expected nil run result on error")
	}
}

func TestBatchProcessor_ProcessDirs_Empty(t *testing.T) {
	runner := &MockRunner{}
	processor := NewBatchProcessor(runner, 2)

	results := processor.ProcessDirs(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestDiscoverInputs(t *testing.T) {
	parent := t.TempDir()

	makeInput := func(name string) {
		dir := filepath.Join(parent, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, ingest.ClaimsFile), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	makeInput("report_b")
	makeInput("report_a")

	// A directory without a claims file and a stray file are skipped
	if err := os.MkdirAll(filepath.Join(parent, "no_claims"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := DiscoverInputs(parent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(dirs) != 2 {
		t.Fatalf("expected 2 input dirs, got %d: %v", len(dirs), dirs)
	}
	if !sort.StringsAreSorted(dirs) {
		t.Errorf("expected dirs in name order, got %v", dirs)
	}
	for _, d := range dirs {
		base := filepath.Base(d)
		if base != "report_a" && base != "report_b" {
			t.Errorf("unexpected input dir %q", d)
		}
	}
}

func TestDiscoverInputs_MissingParent(t *testing.T) {
	_, err := DiscoverInputs(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Error("expected error for missing parent dir")
	}
}

func TestBatchProcessor_ProcessParent(t *testing.T) {
	parent := t.TempDir()
	for _, name := range []string{"report_a", "report_b"} {
		dir := filepath.Join(parent, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, ingest.ClaimsFile), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	runner := &MockRunner{}
	processor := NewBatchProcessor(runner, 2)

	results, err := processor.ProcessParent(context.Background(), parent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessParent_MissingDir(t *testing.T) {
	runner := &MockRunner{}
	processor := NewBatchProcessor(runner, 2)

	_, err := processor.ProcessParent(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Error("expected error for missing parent dir")
	}
}
