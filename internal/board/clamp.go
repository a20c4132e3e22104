package board

import (
	"github.com/yungbote/senseboard-backend/internal/types"
)

// ClampToCanvasBounds pulls every element that lies fully outside the canvas
// rectangle back to the nearest boundary. Returns how many elements moved.
func ClampToCanvasBounds(b *types.BoardState) int {
	adjusted := 0
	for _, id := range b.Order {
		el, ok := b.Elements[id]
		if !ok {
			continue
		}
		eb := ElementBounds(el)
		fullyOutside := eb.MaxX < CanvasMinX || eb.MinX > CanvasMaxX ||
			eb.MaxY < CanvasMinY || eb.MinY > CanvasMaxY
		if !fullyOutside {
			continue
		}
		var dx, dy float64
		if eb.MaxX < CanvasMinX {
			dx = CanvasMinX - eb.MinX
		} else if eb.MinX > CanvasMaxX {
			dx = CanvasMaxX - eb.MaxX
		}
		if eb.MaxY < CanvasMinY {
			dy = CanvasMinY - eb.MinY
		} else if eb.MinY > CanvasMaxY {
			dy = CanvasMaxY - eb.MaxY
		}
		if dx != 0 || dy != 0 {
			OffsetElement(el, dx, dy)
			adjusted++
		}
	}
	return adjusted
}

// ShiftAILayers pushes every AI-created element down by shiftY, dropping any
// whose shifted bounds sit entirely past boundaryY. Returns shifted and
// dropped counts. Order entries for dropped elements are removed too.
func ShiftAILayers(b *types.BoardState, shiftY, boundaryY float64) (shifted, dropped int) {
	var drop []string
	for _, id := range b.Order {
		el, ok := b.Elements[id]
		if !ok || el.CreatedBy != types.CreatedByAI {
			continue
		}
		OffsetElement(el, 0, shiftY)
		shifted++
		if ElementBounds(el).MinY > boundaryY {
			drop = append(drop, id)
		}
	}
	for _, id := range drop {
		applyDelete(b, id)
		dropped++
	}
	return shifted, dropped
}
