package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"os"

	"github.com/mapicassistant-coder/factmesh/internal/model"
)

// dashboardHTML is the single-page verification dashboard. Counts and
// verification items are filled in from the graph; the filter buttons
// toggle visibility client-side.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>FactMesh &mdash; {{.ReportName}}</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f6fa; color: #2d3436; padding: 20px; }
  .container { max-width: 1200px; margin: 0 auto; }
  h1 { font-size: 1.8rem; margin-bottom: 8px; color: #0a3d62; }
  .subtitle { color: #636e72; margin-bottom: 24px; font-size: 0.95rem; }
  .summary-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 16px; margin-bottom: 32px; }
  .summary-card { background: white; border-radius: 12px; padding: 20px; text-align: center; box-shadow: 0 2px 8px rgba(0,0,0,0.06); }
  .summary-card .number { font-size: 2.4rem; font-weight: 700; }
  .summary-card .label { font-size: 0.85rem; color: #636e72; margin-top: 4px; }
  .match .number { color: #00b894; }
  .mismatch .number { color: #d63031; }
  .unverifiable .number { color: #fdcb6e; }
  .qualitative .number { color: #74b9ff; }
  .section { background: white; border-radius: 12px; padding: 24px; margin-bottom: 20px; box-shadow: 0 2px 8px rgba(0,0,0,0.06); }
  .section h2 { font-size: 1.2rem; margin-bottom: 16px; color: #0a3d62; border-bottom: 2px solid #dfe6e9; padding-bottom: 8px; }
  .verification { padding: 12px 16px; border-left: 4px solid; margin-bottom: 8px; border-radius: 0 8px 8px 0; background: #fafafa; }
  .verification.MATCH { border-color: #00b894; }
  .verification.MISMATCH { border-color: #d63031; background: #fff5f5; }
  .verification.UNVERIFIABLE { border-color: #fdcb6e; }
  .verification.QUALITATIVE { border-color: #74b9ff; opacity: 0.7; }
  .verification .status { font-weight: 700; font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; }
  .verification.MATCH .status { color: #00b894; }
  .verification.MISMATCH .status { color: #d63031; }
  .verification.UNVERIFIABLE .status { color: #e17055; }
  .verification.QUALITATIVE .status { color: #74b9ff; }
  .verification .claim { margin-top: 4px; font-size: 0.9rem; color: #2d3436; }
  .verification .detail { margin-top: 4px; font-size: 0.8rem; color: #636e72; }
  .tag { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 0.75rem; background: #dfe6e9; color: #636e72; margin-right: 4px; }
  .progress-bar { height: 32px; border-radius: 8px; overflow: hidden; display: flex; margin-bottom: 8px; }
  .progress-bar .segment { display: flex; align-items: center; justify-content: center; color: white; font-size: 0.8rem; font-weight: 600; }
  .progress-bar .segment.match { background: #00b894; }
  .progress-bar .segment.mismatch { background: #d63031; }
  .progress-bar .segment.unverifiable { background: #fdcb6e; color: #2d3436; }
  .progress-bar .segment.qualitative { background: #74b9ff; }
  .graph-section { margin-top: 16px; }
  .edge-list { font-size: 0.8rem; color: #636e72; }
  .edge-list li { margin-bottom: 2px; }
  .filter-bar { margin-bottom: 16px; display: flex; gap: 8px; }
  .filter-btn { padding: 6px 16px; border-radius: 20px; border: 1px solid #dfe6e9; background: white; cursor: pointer; font-size: 0.85rem; transition: all 0.2s; }
  .filter-btn:hover, .filter-btn.active { background: #0a3d62; color: white; border-color: #0a3d62; }
</style>
</head>
<body>
<div class="container">
  <h1>FactMesh Verification Report</h1>
  <p class="subtitle">{{.ReportName}} &mdash; {{.TotalClaims}} claims verified against {{.TotalTables}} tables</p>

  <div class="summary-grid">
    <div class="summary-card match">
      <div class="number">{{.MatchCount}}</div>
      <div class="label">Verified Match</div>
    </div>
    <div class="summary-card mismatch">
      <div class="number">{{.MismatchCount}}</div>
      <div class="label">Mismatch</div>
    </div>
    <div class="summary-card unverifiable">
      <div class="number">{{.UnverifiableCount}}</div>
      <div class="label">Unverifiable</div>
    </div>
    <div class="summary-card qualitative">
      <div class="number">{{.QualitativeCount}}</div>
      <div class="label">Qualitative</div>
    </div>
  </div>

  <div class="section">
    <h2>Verification Coverage</h2>
    <div class="progress-bar">
      {{range .Segments}}<div class="segment {{.Class}}" style="width:{{.Width}}%">{{.Count}}</div>{{end}}
    </div>
    <p style="font-size: 0.85rem; color: #636e72; margin-top: 8px;">
      {{.MatchPct}}% of numeric claims verified against source tables
    </p>
  </div>

  {{if .Mismatches}}
  <div class="section" style="border: 2px solid #d63031;">
    <h2 style="color: #d63031;">Mismatches Requiring Attention ({{len .Mismatches}})</h2>
    {{range .Mismatches}}
    <div class="verification MISMATCH">
      <div class="status">MISMATCH</div>
      <div class="claim">"{{.Claim}}"</div>
      <div class="detail">
        <span class="tag">{{.Variable}}</span>
        <span class="tag">{{.Year}}</span>
        <span class="tag">{{.TableID}}</span>
        Claim says <b>{{.ClaimValue}}</b>, table shows <b>{{.TableValue}}</b>
      </div>
    </div>
    {{end}}
  </div>
  {{end}}

  <div class="section">
    <h2>All Verifications</h2>
    <div class="filter-bar">
      <button class="filter-btn active" onclick="filterResults('all')">All ({{.TotalVerifications}})</button>
      <button class="filter-btn" onclick="filterResults('MATCH')">Match ({{.MatchCount}})</button>
      <button class="filter-btn" onclick="filterResults('MISMATCH')">Mismatch ({{.MismatchCount}})</button>
      <button class="filter-btn" onclick="filterResults('UNVERIFIABLE')">Unverifiable ({{.UnverifiableCount}})</button>
      <button class="filter-btn" onclick="filterResults('QUALITATIVE')">Qualitative ({{.QualitativeCount}})</button>
    </div>
    {{range .Verifications}}
    <div class="verification {{.Status}}">
      <div class="status">{{.Status}}</div>
      <div class="claim">"{{.Claim}}"</div>
      <div class="detail">{{range .Tags}}<span class="tag">{{.}}</span>{{end}} {{.Detail}}</div>
    </div>
    {{end}}
  </div>

  <div class="section">
    <h2>Graph Statistics</h2>
    <p style="font-size: 0.9rem; color: #636e72;">
      {{.NodeCount}} nodes ({{.ClaimNodes}} claims, {{.TableNodes}} tables, {{.VarNodes}} variables, {{.CellNodes}} cells)
      &middot; {{.EdgeCount}} edges
    </p>
  </div>
</div>

<script>
function filterResults(status) {
  document.querySelectorAll('.filter-btn').forEach(b => b.classList.remove('active'));
  event.target.classList.add('active');
  document.querySelectorAll('.verification').forEach(el => {
    if (status === 'all' || el.classList.contains(status)) {
      el.style.display = '';
    } else {
      el.style.display = 'none';
    }
  });
}
</script>
</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardData struct {
	ReportName         string
	TotalClaims        int
	TotalTables        int
	MatchCount         int
	MismatchCount      int
	UnverifiableCount  int
	QualitativeCount   int
	TotalVerifications int
	MatchPct           int
	Segments           []progressSegment
	Mismatches         []mismatchView
	Verifications      []verificationView
	NodeCount          int
	ClaimNodes         int
	TableNodes         int
	VarNodes           int
	CellNodes          int
	EdgeCount          int
}

type progressSegment struct {
	Class string
	Width float64
	Count int
}

type mismatchView struct {
	Claim      string
	Variable   string
	Year       string
	TableID    string
	ClaimValue string
	TableValue string
}

type verificationView struct {
	Status model.VerificationStatus
	Claim  string
	Tags   []string
	Detail string
}

// RenderHTML writes the verification dashboard.
func (r *Renderer) RenderHTML(g *model.Graph, reportName, path string) error {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, buildDashboard(g, reportName)); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

func buildDashboard(g *model.Graph, reportName string) dashboardData {
	s := g.Summary()
	totalNumeric := s.Match + s.Mismatch + s.Unverifiable
	matchPct := 0
	if totalNumeric > 0 {
		matchPct = int(math.Round(float64(s.Match) / float64(totalNumeric) * 100))
	}

	data := dashboardData{
		ReportName:         reportName,
		TotalClaims:        s.TotalClaims,
		TotalTables:        s.TotalTables,
		MatchCount:         s.Match,
		MismatchCount:      s.Mismatch,
		UnverifiableCount:  s.Unverifiable,
		QualitativeCount:   s.Qualitative,
		TotalVerifications: len(g.Verifications),
		MatchPct:           matchPct,
		NodeCount:          len(g.Nodes),
		EdgeCount:          len(g.Edges),
	}

	totalV := len(g.Verifications)
	for _, seg := range []struct {
		class string
		count int
	}{
		{"match", s.Match},
		{"mismatch", s.Mismatch},
		{"unverifiable", s.Unverifiable},
		{"qualitative", s.Qualitative},
	} {
		if seg.count == 0 {
			continue
		}
		data.Segments = append(data.Segments, progressSegment{
			Class: seg.class,
			Width: float64(seg.count) / float64(totalV) * 100,
			Count: seg.count,
		})
	}

	for _, v := range g.Verifications {
		text, page := claimDisplay(g, v.ClaimID)
		item := verificationView{Status: v.Status, Claim: text, Detail: v.Detail}
		if v.Variable != "" {
			item.Tags = append(item.Tags, v.Variable)
		}
		if v.Year != "" && v.Year != model.Unknown {
			item.Tags = append(item.Tags, v.Year)
		}
		if v.TableID != "" {
			item.Tags = append(item.Tags, v.TableID)
		}
		if page != "" {
			item.Tags = append(item.Tags, page)
		}
		data.Verifications = append(data.Verifications, item)

		if v.Status == model.StatusMismatch {
			data.Mismatches = append(data.Mismatches, mismatchView{
				Claim:      text,
				Variable:   v.Variable,
				Year:       v.Year,
				TableID:    v.TableID,
				ClaimValue: v.ClaimValue,
				TableValue: v.TableValue,
			})
		}
	}

	for _, n := range g.Nodes {
		switch n.Type {
		case model.NodeClaim:
			data.ClaimNodes++
		case model.NodeTable:
			data.TableNodes++
		case model.NodeVariable:
			data.VarNodes++
		case model.NodeCell:
			data.CellNodes++
		}
	}
	return data
}

// claimDisplay resolves the claim node text and page tag for the
// dashboard, truncating long claims.
func claimDisplay(g *model.Graph, claimID string) (text, page string) {
	n, ok := g.Node(claimID)
	if !ok {
		return claimID, ""
	}
	text, _ = n.Metadata["full_text"].(string)
	if text == "" {
		text = n.Label
	}
	page, _ = n.Metadata["page"].(string)
	if runes := []rune(text); len(runes) > 200 {
		text = string(runes[:200])
	}
	return text, page
}
