package types

import (
	"time"
)

const (
	ElementText     = "text"
	ElementRect     = "rect"
	ElementEllipse  = "ellipse"
	ElementDiamond  = "diamond"
	ElementTriangle = "triangle"
	ElementSticky   = "sticky"
	ElementFrame    = "frame"
	ElementStroke   = "stroke"
	ElementLine     = "line"
	ElementArrow    = "arrow"
)

const CreatedByAI = "ai"

// BoardElement is the single wire shape for every element kind. Which fields
// are meaningful depends on Kind: box kinds use X/Y/W/H, line kinds use
// Points, text carries Text, frame carries Title.
type BoardElement struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	W         float64        `json:"w,omitempty"`
	H         float64        `json:"h,omitempty"`
	Text      string         `json:"text,omitempty"`
	Title     string         `json:"title,omitempty"`
	Points    [][]float64    `json:"points,omitempty"`
	Style     map[string]any `json:"style,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	CreatedBy string         `json:"createdBy"`
}

// IsBoxKind reports whether the element carries x/y/w/h geometry.
func (e *BoardElement) IsBoxKind() bool {
	switch e.Kind {
	case ElementRect, ElementEllipse, ElementDiamond, ElementTriangle, ElementSticky, ElementFrame:
		return true
	}
	return false
}

// IsLineKind reports whether the element carries a point list.
func (e *BoardElement) IsLineKind() bool {
	switch e.Kind {
	case ElementStroke, ElementLine, ElementArrow:
		return true
	}
	return false
}

func (e *BoardElement) Clone() *BoardElement {
	if e == nil {
		return nil
	}
	out := *e
	if e.Points != nil {
		out.Points = make([][]float64, len(e.Points))
		for i, p := range e.Points {
			cp := make([]float64, len(p))
			copy(cp, p)
			out.Points[i] = cp
		}
	}
	if e.Style != nil {
		out.Style = make(map[string]any, len(e.Style))
		for k, v := range e.Style {
			out.Style[k] = v
		}
	}
	return &out
}

type Viewport struct {
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Zoom *float64 `json:"zoom,omitempty"`
}

// BoardState holds the element store plus paint order. Order contains each
// key of Elements exactly once; earlier ids paint behind later ones.
type BoardState struct {
	Elements      map[string]*BoardElement `json:"elements"`
	Order         []string                 `json:"order"`
	Revision      uint64                   `json:"revision"`
	LastUpdatedAt time.Time                `json:"lastUpdatedAt"`
	Viewport      *Viewport                `json:"viewport,omitempty"`
}

func NewBoardState() *BoardState {
	return &BoardState{
		Elements: make(map[string]*BoardElement),
		Order:    []string{},
	}
}

func (b *BoardState) Clone() *BoardState {
	if b == nil {
		return nil
	}
	out := &BoardState{
		Elements:      make(map[string]*BoardElement, len(b.Elements)),
		Order:         append([]string{}, b.Order...),
		Revision:      b.Revision,
		LastUpdatedAt: b.LastUpdatedAt,
	}
	for id, el := range b.Elements {
		out.Elements[id] = el.Clone()
	}
	if b.Viewport != nil {
		vp := *b.Viewport
		out.Viewport = &vp
	}
	return out
}

// Board op vocabulary, the only write path into a board.
const (
	OpClearBoard         = "clearBoard"
	OpUpsertElement      = "upsertElement"
	OpAppendStrokePoints = "appendStrokePoints"
	OpDeleteElement      = "deleteElement"
	OpOffsetElement      = "offsetElement"
	OpSetElementGeometry = "setElementGeometry"
	OpSetElementStyle    = "setElementStyle"
	OpSetElementText     = "setElementText"
	OpDuplicateElement   = "duplicateElement"
	OpSetElementZIndex   = "setElementZIndex"
	OpAlignElements      = "alignElements"
	OpDistributeElements = "distributeElements"
	OpSetViewport        = "setViewport"
	OpBatch              = "batch"
)

// BoardOp is a tagged operation; Type selects which fields apply.
type BoardOp struct {
	Type    string        `json:"type"`
	Element *BoardElement `json:"element,omitempty"`
	ID      string        `json:"id,omitempty"`
	NewID   string        `json:"newId,omitempty"`
	Points  [][]float64   `json:"points,omitempty"`
	DX      float64       `json:"dx,omitempty"`
	DY      float64       `json:"dy,omitempty"`

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	W *float64 `json:"w,omitempty"`
	H *float64 `json:"h,omitempty"`

	Style  map[string]any `json:"style,omitempty"`
	Text   *string        `json:"text,omitempty"`
	ZIndex *int           `json:"zIndex,omitempty"`

	IDs  []string `json:"ids,omitempty"`
	Axis string   `json:"axis,omitempty"`
	Gap  *float64 `json:"gap,omitempty"`

	Viewport *Viewport `json:"viewport,omitempty"`
	Ops      []BoardOp `json:"ops,omitempty"`
}

// Renderable reports whether the op can put visible content on the board.
func (op *BoardOp) Renderable() bool {
	if op.Type == OpSetViewport {
		return false
	}
	if op.Type == OpBatch {
		for i := range op.Ops {
			if op.Ops[i].Renderable() {
				return true
			}
		}
		return false
	}
	return true
}
