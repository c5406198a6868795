package model

import "encoding/json"

// NodeType identifies what a graph node stands for
type NodeType string

const (
	NodeClaim    NodeType = "claim"    // A narrative claim
	NodeTable    NodeType = "table"    // A statistical table
	NodeVariable NodeType = "variable" // An economic variable shared across claims
	NodeCell     NodeType = "cell"     // A single table cell a claim resolved to
)

// EdgeType identifies the relationship an edge encodes
type EdgeType string

const (
	EdgeReferences       EdgeType = "references"        // claim -> its likely table
	EdgeMentionsVariable EdgeType = "mentions_variable" // claim -> variable
	EdgeContainsCell     EdgeType = "contains_cell"     // table -> cell
	EdgeVerifiedBy       EdgeType = "verified_by"       // claim -> cell that verified it
)

// VerificationStatus is the outcome of checking one value mention
type VerificationStatus string

const (
	StatusMatch        VerificationStatus = "MATCH"        // Value found within tolerance
	StatusMismatch     VerificationStatus = "MISMATCH"     // Cell found but value disagrees
	StatusUnverifiable VerificationStatus = "UNVERIFIABLE" // No cell found in any table
	StatusQualitative  VerificationStatus = "QUALITATIVE"  // Claim carries no numeric values
)

// ConsistencyStatus is the outcome of a cross-table comparison
type ConsistencyStatus string

const (
	StatusConsistent   ConsistencyStatus = "CONSISTENT"
	StatusInconsistent ConsistencyStatus = "INCONSISTENT"
)

// ResolutionMethod records which path produced a verification
type ResolutionMethod string

const (
	MethodDeterministic ResolutionMethod = "deterministic"
	MethodLLM           ResolutionMethod = "llm"
)

// Node is a typed graph node. Metadata carries type-specific detail
// (page, columns, full claim text) and goes out verbatim in the JSON
// artifact.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Label    string         `json:"label"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Edge is a typed, directed graph edge
type Edge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Type     EdgeType       `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VerificationResult records the outcome of verifying one value
// mention against the tables.
type VerificationResult struct {
	ClaimID    string             `json:"claim_id"`
	Status     VerificationStatus `json:"status"`
	ClaimValue string             `json:"claim_value,omitempty"`
	TableValue string             `json:"table_value,omitempty"`
	TableID    string             `json:"table_id,omitempty"`
	Variable   string             `json:"variable,omitempty"`
	Year       string             `json:"year,omitempty"`
	Detail     string             `json:"detail,omitempty"`
	Method     ResolutionMethod   `json:"resolution_method"`
}

// CrossTableEntry is one table's value for a (row name, year) pair
type CrossTableEntry struct {
	TableID string `json:"table_id"`
	Row     string `json:"row"`
	Column  string `json:"col"`
	Value   string `json:"value"`
}

// CrossTableResult records whether tables agree on one value
type CrossTableResult struct {
	Variable string            `json:"variable"`
	Year     string            `json:"year"`
	Entries  []CrossTableEntry `json:"entries"`
	Status   ConsistencyStatus `json:"status"`
	Detail   string            `json:"detail,omitempty"`
}

// Summary aggregates verification and consistency counts for reports
type Summary struct {
	TotalClaims            int `json:"total_claims"`
	TotalTables            int `json:"total_tables"`
	Verifications          int `json:"verifications"`
	Match                  int `json:"match"`
	Mismatch               int `json:"mismatch"`
	Unverifiable           int `json:"unverifiable"`
	Qualitative            int `json:"qualitative"`
	CrossTableChecks       int `json:"cross_table_checks"`
	CrossTableConsistent   int `json:"cross_table_consistent"`
	CrossTableInconsistent int `json:"cross_table_inconsistent"`
}

// Graph is the verification artifact: append-only node and edge sets
// plus the verification and cross-table results that produced them.
// Nodes deduplicate on id; edges append as emitted.
type Graph struct {
	Nodes            []Node
	Edges            []Edge
	Verifications    []VerificationResult
	CrossTableChecks []CrossTableResult

	TotalClaims int
	TotalTables int

	index map[string]int // node id -> position in Nodes
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode appends the node unless a node with the same id already
// exists. It reports whether the node was added.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.index[n.ID]; ok {
		return false
	}
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return true
}

// AddEdge appends the edge.
func (g *Graph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// AddVerification appends a verification result.
func (g *Graph) AddVerification(v VerificationResult) {
	g.Verifications = append(g.Verifications, v)
}

// Summary computes the aggregate counts from the recorded results.
func (g *Graph) Summary() Summary {
	s := Summary{
		TotalClaims:      g.TotalClaims,
		TotalTables:      g.TotalTables,
		Verifications:    len(g.Verifications),
		CrossTableChecks: len(g.CrossTableChecks),
	}
	for _, v := range g.Verifications {
		switch v.Status {
		case StatusMatch:
			s.Match++
		case StatusMismatch:
			s.Mismatch++
		case StatusUnverifiable:
			s.Unverifiable++
		case StatusQualitative:
			s.Qualitative++
		}
	}
	for _, c := range g.CrossTableChecks {
		switch c.Status {
		case StatusConsistent:
			s.CrossTableConsistent++
		case StatusInconsistent:
			s.CrossTableInconsistent++
		}
	}
	return s
}

// graphArtifact is the serialized shape of the graph
type graphArtifact struct {
	Nodes            []Node               `json:"nodes"`
	Edges            []Edge               `json:"edges"`
	Verifications    []VerificationResult `json:"verifications"`
	CrossTableChecks []CrossTableResult   `json:"cross_table_checks"`
	Summary          Summary              `json:"summary"`
}

// MarshalJSON serializes the graph with its computed summary. Empty
// collections serialize as [] rather than null so consumers can index
// without nil checks.
func (g *Graph) MarshalJSON() ([]byte, error) {
	a := graphArtifact{
		Nodes:            g.Nodes,
		Edges:            g.Edges,
		Verifications:    g.Verifications,
		CrossTableChecks: g.CrossTableChecks,
		Summary:          g.Summary(),
	}
	if a.Nodes == nil {
		a.Nodes = []Node{}
	}
	if a.Edges == nil {
		a.Edges = []Edge{}
	}
	if a.Verifications == nil {
		a.Verifications = []VerificationResult{}
	}
	if a.CrossTableChecks == nil {
		a.CrossTableChecks = []CrossTableResult{}
	}
	return json.Marshal(a)
}
