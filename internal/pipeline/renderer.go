package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mapicassistant-coder/factmesh/internal/model"
)

// Renderer writes the verification artifacts: graph JSON, markdown
// report, HTML dashboard.
type Renderer struct {
	includeFooter bool
	out           io.Writer
}

func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, out: os.Stdout}
}

// RenderJSON writes the graph artifact as indented JSON.
func (r *Renderer) RenderJSON(g *model.Graph, path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// RenderMarkdown writes the consistency report.
func (r *Renderer) RenderMarkdown(g *model.Graph, reportName, path string) error {
	content := r.markdown(g, reportName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (r *Renderer) markdown(g *model.Graph, reportName string) string {
	summary := g.Summary()
	totalNumeric := summary.Match + summary.Mismatch + summary.Unverifiable
	matchPct := 0
	if totalNumeric > 0 {
		matchPct = int(math.Round(float64(summary.Match) / float64(totalNumeric) * 100))
	}

	lines := []string{
		fmt.Sprintf("# FactMesh Consistency Report: %s\n", reportName),
		"## Summary\n",
		"| Metric | Count |",
		"| --- | ---: |",
		fmt.Sprintf("| Total claims | %d |", summary.TotalClaims),
		fmt.Sprintf("| Tables checked | %d |", summary.TotalTables),
		fmt.Sprintf("| **Verified match** | **%d** |", summary.Match),
		fmt.Sprintf("| **Mismatch** | **%d** |", summary.Mismatch),
		fmt.Sprintf("| Unverifiable | %d |", summary.Unverifiable),
		fmt.Sprintf("| Qualitative (no numbers) | %d |", summary.Qualitative),
		fmt.Sprintf("| **Match rate** | **%d%%** |", matchPct),
		"",
		"## Cross-Table Consistency\n",
		"| Metric | Count |",
		"| --- | ---: |",
		fmt.Sprintf("| Checks performed | %d |", summary.CrossTableChecks),
		fmt.Sprintf("| Consistent | %d |", summary.CrossTableConsistent),
		fmt.Sprintf("| **Inconsistent** | **%d** |", summary.CrossTableInconsistent),
		"",
	}

	var ctInconsistent []model.CrossTableResult
	for _, c := range g.CrossTableChecks {
		if c.Status == model.StatusInconsistent {
			ctInconsistent = append(ctInconsistent, c)
		}
	}
	if len(ctInconsistent) > 0 {
		lines = append(lines, "### Cross-Table Inconsistencies\n")
		for _, c := range ctInconsistent {
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", c.Variable, c.Year, c.Detail))
		}
		lines = append(lines, "")
	}

	var mismatches []model.VerificationResult
	for _, v := range g.Verifications {
		if v.Status == model.StatusMismatch {
			mismatches = append(mismatches, v)
		}
	}
	if len(mismatches) > 0 {
		lines = append(lines, "## Claim-Table Mismatches\n")
		for _, v := range mismatches {
			lines = append(lines,
				fmt.Sprintf("### %s (%s)", v.Variable, v.Year),
				fmt.Sprintf("- **Claim:** %q", claimText(g, v.ClaimID, 200)),
				fmt.Sprintf("- **Claim value:** %s", v.ClaimValue),
				fmt.Sprintf("- **Table value:** %s (%s)", v.TableValue, v.TableID),
				fmt.Sprintf("- **Method:** %s", v.Method),
				fmt.Sprintf("- **Detail:** %s", v.Detail),
				"",
			)
		}
	}

	var detMatches, llmMatches []model.VerificationResult
	for _, v := range g.Verifications {
		if v.Status != model.StatusMatch {
			continue
		}
		if v.Method == model.MethodLLM {
			llmMatches = append(llmMatches, v)
		} else {
			detMatches = append(detMatches, v)
		}
	}

	if len(detMatches) > 0 {
		lines = append(lines, fmt.Sprintf("## Deterministic Matches (%d)\n", len(detMatches)))
		for i, v := range detMatches {
			if i >= 20 {
				break
			}
			lines = append(lines, fmt.Sprintf("- **%s** (%s): claim=%s, table=%s [%s]",
				v.Variable, v.Year, v.ClaimValue, v.TableValue, v.TableID))
		}
		if len(detMatches) > 20 {
			lines = append(lines, fmt.Sprintf("- ... (%d more)", len(detMatches)-20))
		}
		lines = append(lines, "")
	}

	if len(llmMatches) > 0 {
		lines = append(lines, fmt.Sprintf("## LLM-Resolved Matches (%d)\n", len(llmMatches)))
		for i, v := range llmMatches {
			if i >= 20 {
				break
			}
			lines = append(lines, fmt.Sprintf("- **%s** (%s): claim=%s, table=%s [%s] | %s",
				v.Variable, v.Year, v.ClaimValue, v.TableValue, v.TableID, v.Detail))
		}
		if len(llmMatches) > 20 {
			lines = append(lines, fmt.Sprintf("- ... (%d more)", len(llmMatches)-20))
		}
		lines = append(lines, "")
	}

	if r.includeFooter {
		lines = append(lines, "---", "", "_Generated by factmesh._", "")
	}

	return strings.Join(lines, "\n")
}

// RenderSummary prints the run counts to the renderer output.
func (r *Renderer) RenderSummary(g *model.Graph) {
	s := g.Summary()
	fmt.Fprintf(r.out, "  Claims:        %d\n", s.TotalClaims)
	fmt.Fprintf(r.out, "  Tables:        %d\n", s.TotalTables)
	fmt.Fprintf(r.out, "  Verifications: %d\n", s.Verifications)
	fmt.Fprintf(r.out, "    MATCH:         %d\n", s.Match)
	fmt.Fprintf(r.out, "    MISMATCH:      %d\n", s.Mismatch)
	fmt.Fprintf(r.out, "    UNVERIFIABLE:  %d\n", s.Unverifiable)
	fmt.Fprintf(r.out, "    QUALITATIVE:   %d\n", s.Qualitative)
	fmt.Fprintf(r.out, "  Cross-table:   %d checks (%d consistent, %d inconsistent)\n",
		s.CrossTableChecks, s.CrossTableConsistent, s.CrossTableInconsistent)
}

// claimText looks up the claim node and returns its stored text,
// truncated to max runes.
func claimText(g *model.Graph, claimID string, max int) string {
	n, ok := g.Node(claimID)
	if !ok {
		return ""
	}
	text, _ := n.Metadata["full_text"].(string)
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max])
	}
	return text
}
