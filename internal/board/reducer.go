package board

import (
	"sort"
	"time"

	"github.com/yungbote/senseboard-backend/internal/types"
)

// Apply runs each op against the board in order and returns how many of them
// applied. Every applied top-level op bumps the revision by one; a batch
// counts as a single bump no matter how many nested ops it carries.
func Apply(b *types.BoardState, ops []types.BoardOp, now time.Time) int {
	applied := 0
	for i := range ops {
		if applyOne(b, &ops[i], now) {
			applied++
			b.Revision++
			b.LastUpdatedAt = now
		}
	}
	return applied
}

func applyOne(b *types.BoardState, op *types.BoardOp, now time.Time) bool {
	switch op.Type {
	case types.OpClearBoard:
		return applyClear(b)
	case types.OpUpsertElement:
		return applyUpsert(b, op.Element, now)
	case types.OpAppendStrokePoints:
		return applyAppendPoints(b, op)
	case types.OpDeleteElement:
		return applyDelete(b, op.ID)
	case types.OpOffsetElement:
		return applyOffset(b, op)
	case types.OpSetElementGeometry:
		return applyGeometry(b, op)
	case types.OpSetElementStyle:
		return applyStyle(b, op)
	case types.OpSetElementText:
		return applyText(b, op)
	case types.OpDuplicateElement:
		return applyDuplicate(b, op, now)
	case types.OpSetElementZIndex:
		return applyZIndex(b, op)
	case types.OpAlignElements:
		return applyAlign(b, op)
	case types.OpDistributeElements:
		return applyDistribute(b, op)
	case types.OpSetViewport:
		return applyViewport(b, op)
	case types.OpBatch:
		any := false
		for i := range op.Ops {
			if applyOne(b, &op.Ops[i], now) {
				any = true
			}
		}
		return any
	default:
		return false
	}
}

func applyClear(b *types.BoardState) bool {
	if len(b.Order) == 0 {
		return false
	}
	b.Elements = make(map[string]*types.BoardElement)
	b.Order = []string{}
	return true
}

// validElement rejects elements missing required fields for their kind.
func validElement(el *types.BoardElement) bool {
	if el == nil || el.ID == "" {
		return false
	}
	switch {
	case el.IsBoxKind():
		return el.W > 0 && el.H > 0 && isFinite(el.X) && isFinite(el.Y)
	case el.IsLineKind():
		return len(filterPoints(el.Points)) >= 1
	case el.Kind == types.ElementText:
		return el.Text != "" && isFinite(el.X) && isFinite(el.Y)
	default:
		return false
	}
}

func applyUpsert(b *types.BoardState, el *types.BoardElement, now time.Time) bool {
	if !validElement(el) {
		return false
	}
	stored := el.Clone()
	if stored.IsLineKind() {
		stored.Points = filterPoints(stored.Points)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.CreatedBy == "" {
		stored.CreatedBy = types.CreatedByAI
	}
	if _, exists := b.Elements[stored.ID]; exists {
		// Replace in place; order position is preserved.
		b.Elements[stored.ID] = stored
		return true
	}
	b.Elements[stored.ID] = stored
	b.Order = append(b.Order, stored.ID)
	return true
}

func applyAppendPoints(b *types.BoardState, op *types.BoardOp) bool {
	el, ok := b.Elements[op.ID]
	if !ok || !el.IsLineKind() {
		return false
	}
	pts := filterPoints(op.Points)
	if len(pts) == 0 {
		return false
	}
	el.Points = append(el.Points, pts...)
	return true
}

func applyDelete(b *types.BoardState, id string) bool {
	if _, ok := b.Elements[id]; !ok {
		return false
	}
	delete(b.Elements, id)
	for i, oid := range b.Order {
		if oid == id {
			b.Order = append(b.Order[:i], b.Order[i+1:]...)
			break
		}
	}
	return true
}

func applyOffset(b *types.BoardState, op *types.BoardOp) bool {
	el, ok := b.Elements[op.ID]
	if !ok {
		return false
	}
	if op.DX == 0 && op.DY == 0 {
		return false
	}
	if !isFinite(op.DX) || !isFinite(op.DY) {
		return false
	}
	OffsetElement(el, op.DX, op.DY)
	return true
}

func applyGeometry(b *types.BoardState, op *types.BoardOp) bool {
	el, ok := b.Elements[op.ID]
	if !ok {
		return false
	}
	changed := false
	if op.X != nil && isFinite(*op.X) {
		el.X = *op.X
		changed = true
	}
	if op.Y != nil && isFinite(*op.Y) {
		el.Y = *op.Y
		changed = true
	}
	if op.W != nil && isFinite(*op.W) && *op.W > 0 {
		el.W = *op.W
		changed = true
	}
	if op.H != nil && isFinite(*op.H) && *op.H > 0 {
		el.H = *op.H
		changed = true
	}
	if el.IsLineKind() && op.Points != nil {
		pts := filterPoints(op.Points)
		if len(pts) > 0 {
			el.Points = pts
			changed = true
		}
	}
	return changed
}

var numericStyleKeys = map[string]bool{
	"width":       true,
	"strokeWidth": true,
	"roughness":   true,
	"fontSize":    true,
}

func applyStyle(b *types.BoardState, op *types.BoardOp) bool {
	el, ok := b.Elements[op.ID]
	if !ok || len(op.Style) == 0 {
		return false
	}
	changed := false
	for k, v := range op.Style {
		if numericStyleKeys[k] {
			if f, ok := toFloat(v); ok && isFinite(f) {
				if el.Style == nil {
					el.Style = map[string]any{}
				}
				el.Style[k] = f
				changed = true
			}
			continue
		}
		if s, ok := v.(string); ok {
			if el.Style == nil {
				el.Style = map[string]any{}
			}
			el.Style[k] = s
			changed = true
		}
	}
	return changed
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func applyText(b *types.BoardState, op *types.BoardOp) bool {
	el, ok := b.Elements[op.ID]
	if !ok || op.Text == nil {
		return false
	}
	switch el.Kind {
	case types.ElementText, types.ElementSticky:
		el.Text = *op.Text
		return true
	case types.ElementFrame:
		el.Title = *op.Text
		return true
	default:
		return false
	}
}

func applyDuplicate(b *types.BoardState, op *types.BoardOp, now time.Time) bool {
	src, ok := b.Elements[op.ID]
	if !ok || op.NewID == "" {
		return false
	}
	if _, exists := b.Elements[op.NewID]; exists {
		return false
	}
	dup := src.Clone()
	dup.ID = op.NewID
	dup.CreatedAt = now
	OffsetElement(dup, op.DX, op.DY)
	b.Elements[dup.ID] = dup
	b.Order = append(b.Order, dup.ID)
	return true
}

// applyZIndex moves the id to an absolute rank in paint order; 0 is the back.
func applyZIndex(b *types.BoardState, op *types.BoardOp) bool {
	if op.ZIndex == nil {
		return false
	}
	if _, ok := b.Elements[op.ID]; !ok {
		return false
	}
	cur := -1
	for i, oid := range b.Order {
		if oid == op.ID {
			cur = i
			break
		}
	}
	if cur < 0 {
		return false
	}
	target := *op.ZIndex
	if target < 0 {
		target = 0
	}
	if target > len(b.Order)-1 {
		target = len(b.Order) - 1
	}
	if target == cur {
		return false
	}
	b.Order = append(b.Order[:cur], b.Order[cur+1:]...)
	b.Order = append(b.Order[:target], append([]string{op.ID}, b.Order[target:]...)...)
	return true
}

// collectTargets resolves op.IDs to existing elements, sorted lexicographically
// by id so coordinate ties resolve deterministically.
func collectTargets(b *types.BoardState, ids []string) []*types.BoardElement {
	out := make([]*types.BoardElement, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if el, ok := b.Elements[id]; ok {
			out = append(out, el)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func applyAlign(b *types.BoardState, op *types.BoardOp) bool {
	targets := collectTargets(b, op.IDs)
	if len(targets) < 2 {
		return false
	}
	all := ElementBounds(targets[0])
	for _, el := range targets[1:] {
		all = all.Union(ElementBounds(el))
	}
	changed := false
	for _, el := range targets {
		eb := ElementBounds(el)
		var dx, dy float64
		switch op.Axis {
		case "left":
			dx = all.MinX - eb.MinX
		case "right":
			dx = all.MaxX - eb.MaxX
		case "center", "x":
			dx = all.CenterX() - eb.CenterX()
		case "top":
			dy = all.MinY - eb.MinY
		case "bottom":
			dy = all.MaxY - eb.MaxY
		case "middle", "y":
			dy = all.CenterY() - eb.CenterY()
		default:
			return false
		}
		if dx != 0 || dy != 0 {
			OffsetElement(el, dx, dy)
			changed = true
		}
	}
	return changed
}

func applyDistribute(b *types.BoardState, op *types.BoardOp) bool {
	targets := collectTargets(b, op.IDs)
	if len(targets) < 3 {
		return false
	}
	horizontal := false
	switch op.Axis {
	case "horizontal", "x":
		horizontal = true
	case "vertical", "y":
		horizontal = false
	default:
		return false
	}

	sort.SliceStable(targets, func(i, j int) bool {
		bi, bj := ElementBounds(targets[i]), ElementBounds(targets[j])
		if horizontal {
			if bi.MinX != bj.MinX {
				return bi.MinX < bj.MinX
			}
		} else {
			if bi.MinY != bj.MinY {
				return bi.MinY < bj.MinY
			}
		}
		return targets[i].ID < targets[j].ID
	})

	var gap float64
	if op.Gap != nil && isFinite(*op.Gap) {
		gap = *op.Gap
	} else {
		first := ElementBounds(targets[0])
		last := ElementBounds(targets[len(targets)-1])
		var span, sizes float64
		if horizontal {
			span = last.MaxX - first.MinX
		} else {
			span = last.MaxY - first.MinY
		}
		for _, el := range targets {
			eb := ElementBounds(el)
			if horizontal {
				sizes += eb.Width()
			} else {
				sizes += eb.Height()
			}
		}
		gap = (span - sizes) / float64(len(targets)-1)
	}

	changed := false
	cursor := 0.0
	if horizontal {
		cursor = ElementBounds(targets[0]).MinX
	} else {
		cursor = ElementBounds(targets[0]).MinY
	}
	for _, el := range targets {
		eb := ElementBounds(el)
		if horizontal {
			if dx := cursor - eb.MinX; dx != 0 {
				OffsetElement(el, dx, 0)
				changed = true
			}
			cursor += eb.Width() + gap
		} else {
			if dy := cursor - eb.MinY; dy != 0 {
				OffsetElement(el, 0, dy)
				changed = true
			}
			cursor += eb.Height() + gap
		}
	}
	return changed
}

func applyViewport(b *types.BoardState, op *types.BoardOp) bool {
	if op.Viewport == nil {
		return false
	}
	vp := *op.Viewport
	b.Viewport = &vp
	return true
}
