package board

import (
	"math"

	"github.com/yungbote/senseboard-backend/internal/types"
)

// Canvas bounds every AI patch is clamped into.
const (
	CanvasMinX = -200.0
	CanvasMaxX = 3800.0
	CanvasMinY = -200.0
	CanvasMaxY = 5600.0
)

// Layer stacking constants: prior AI layers shift down by LayerShiftY before
// a new patch applies; anything entirely past LayerBoundaryY is dropped.
const (
	LayerShiftY    = 520.0
	LayerBoundaryY = 5600.0
)

type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }
func (b Bounds) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }
func (b Bounds) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// ElementBounds computes the bounding box for any element kind. Text without
// explicit w/h gets a nominal box from its glyph count.
func ElementBounds(el *types.BoardElement) Bounds {
	switch {
	case el.IsLineKind():
		if len(el.Points) == 0 {
			return Bounds{MinX: el.X, MinY: el.Y, MaxX: el.X, MaxY: el.Y}
		}
		b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
		for _, p := range el.Points {
			if len(p) < 2 {
				continue
			}
			b.MinX = math.Min(b.MinX, p[0])
			b.MaxX = math.Max(b.MaxX, p[0])
			b.MinY = math.Min(b.MinY, p[1])
			b.MaxY = math.Max(b.MaxY, p[1])
		}
		if math.IsInf(b.MinX, 1) {
			return Bounds{MinX: el.X, MinY: el.Y, MaxX: el.X, MaxY: el.Y}
		}
		return b
	case el.Kind == types.ElementText:
		w, h := el.W, el.H
		if w <= 0 {
			w = math.Max(40, 9*float64(len(el.Text)))
		}
		if h <= 0 {
			h = 28
		}
		return Bounds{MinX: el.X, MinY: el.Y, MaxX: el.X + w, MaxY: el.Y + h}
	default:
		return Bounds{MinX: el.X, MinY: el.Y, MaxX: el.X + el.W, MaxY: el.Y + el.H}
	}
}

// OffsetElement translates geometry: box position for box-like kinds, every
// point for line-like kinds.
func OffsetElement(el *types.BoardElement, dx, dy float64) {
	if el.IsLineKind() {
		for _, p := range el.Points {
			if len(p) >= 2 {
				p[0] += dx
				p[1] += dy
			}
		}
		return
	}
	el.X += dx
	el.Y += dy
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// filterPoints keeps only finite [x,y] pairs.
func filterPoints(points [][]float64) [][]float64 {
	out := make([][]float64, 0, len(points))
	for _, p := range points {
		if len(p) < 2 || !isFinite(p[0]) || !isFinite(p[1]) {
			continue
		}
		out = append(out, []float64{p[0], p[1]})
	}
	return out
}
