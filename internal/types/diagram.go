package types

import (
	"time"
)

const (
	DiagramFlowchart    = "flowchart"
	DiagramSystemBlocks = "system_blocks"
	DiagramTree         = "tree"
)

type DiagramNode struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type DiagramEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

type DiagramGroup struct {
	ID             string                  `json:"id"`
	Topic          string                  `json:"topic"`
	DiagramType    string                  `json:"diagramType"`
	Nodes          map[string]*DiagramNode `json:"nodes"`
	Edges          map[string]*DiagramEdge `json:"edges"`
	Bounds         FocusBox                `json:"bounds"`
	Title          string                  `json:"title,omitempty"`
	Notes          []string                `json:"notes,omitempty"`
	HighlightOrder []string                `json:"highlightOrder,omitempty"`
	Pinned         bool                    `json:"pinned"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

func NewDiagramGroup(id string, now time.Time) *DiagramGroup {
	return &DiagramGroup{
		ID:        id,
		Nodes:     make(map[string]*DiagramNode),
		Edges:     make(map[string]*DiagramEdge),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g *DiagramGroup) Clone() *DiagramGroup {
	if g == nil {
		return nil
	}
	out := *g
	out.Nodes = make(map[string]*DiagramNode, len(g.Nodes))
	for id, n := range g.Nodes {
		cp := *n
		out.Nodes[id] = &cp
	}
	out.Edges = make(map[string]*DiagramEdge, len(g.Edges))
	for id, e := range g.Edges {
		cp := *e
		out.Edges[id] = &cp
	}
	out.Notes = append([]string{}, g.Notes...)
	out.HighlightOrder = append([]string{}, g.HighlightOrder...)
	return &out
}

// Diagram patch action vocabulary.
const (
	PatchUpsertNode     = "upsertNode"
	PatchUpsertEdge     = "upsertEdge"
	PatchDeleteShape    = "deleteShape"
	PatchSetTitle       = "setTitle"
	PatchSetNotes       = "setNotes"
	PatchHighlightOrder = "highlightOrder"
	PatchLayoutHint     = "layoutHint"
)

// Layout hints emitted by the builders.
const (
	LayoutTree        = "tree"
	LayoutLeftToRight = "left-to-right"
	LayoutTopDown     = "top-down"
)

type DiagramPatchAction struct {
	Type string `json:"type"`

	// upsertNode / deleteShape
	ID     string  `json:"id,omitempty"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// upsertEdge
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// setTitle / layoutHint
	Title string `json:"title,omitempty"`
	Hint  string `json:"hint,omitempty"`

	// setNotes / highlightOrder
	Notes []string `json:"notes,omitempty"`
	Order []string `json:"order,omitempty"`
}

// Hard caps on a single patch.
const (
	MaxPatchNodes         = 500
	MaxPatchOpenQuestions = 2
	MaxPatchConflicts     = 2
)

type DiagramPatch struct {
	Topic         string               `json:"topic"`
	DiagramType   string               `json:"diagramType"`
	Confidence    float64              `json:"confidence"`
	Actions       []DiagramPatchAction `json:"actions"`
	OpenQuestions []string             `json:"openQuestions,omitempty"`
	Conflicts     []string             `json:"conflicts,omitempty"`
	TargetGroupID string               `json:"targetGroupId,omitempty"`
}

// ClampLimits enforces the structural caps in place: nodes <= 500,
// openQuestions/conflicts <= 2, confidence in [0.1, 0.99].
func (p *DiagramPatch) ClampLimits() {
	if p.Confidence < 0.1 {
		p.Confidence = 0.1
	}
	if p.Confidence > 0.99 {
		p.Confidence = 0.99
	}
	if len(p.OpenQuestions) > MaxPatchOpenQuestions {
		p.OpenQuestions = p.OpenQuestions[:MaxPatchOpenQuestions]
	}
	if len(p.Conflicts) > MaxPatchConflicts {
		p.Conflicts = p.Conflicts[:MaxPatchConflicts]
	}
	nodeCount := 0
	kept := p.Actions[:0]
	for _, a := range p.Actions {
		if a.Type == PatchUpsertNode {
			nodeCount++
			if nodeCount > MaxPatchNodes {
				continue
			}
		}
		kept = append(kept, a)
	}
	p.Actions = kept
}
