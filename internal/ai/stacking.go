package ai

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/types"
)

// NewLayerPrefix mints the id namespace for one AI generation.
func NewLayerPrefix(now time.Time) string {
	return fmt.Sprintf("layer_%s_%04x", strconv.FormatInt(now.UnixMilli(), 36), rand.Intn(0x10000))
}

// NamespaceOps rewrites every element id in the op list with the layer
// prefix so fresh generations cannot collide with earlier layers. AI-issued
// clearBoard is dropped outright; batches rewrite recursively.
func NamespaceOps(prefix string, ops []types.BoardOp) []types.BoardOp {
	out := make([]types.BoardOp, 0, len(ops))
	for _, op := range ops {
		switch op.Type {
		case types.OpClearBoard:
			continue
		case types.OpBatch:
			op.Ops = NamespaceOps(prefix, op.Ops)
			out = append(out, op)
			continue
		}
		if op.Element != nil {
			el := op.Element.Clone()
			el.ID = prefix + "_" + el.ID
			el.CreatedBy = types.CreatedByAI
			op.Element = el
		}
		if op.ID != "" {
			op.ID = prefix + "_" + op.ID
		}
		if op.NewID != "" {
			op.NewID = prefix + "_" + op.NewID
		}
		if len(op.IDs) > 0 {
			ids := make([]string, len(op.IDs))
			for i, id := range op.IDs {
				ids[i] = prefix + "_" + id
			}
			op.IDs = ids
		}
		out = append(out, op)
	}
	return out
}

// StackResult reports what one stacked application did to the board.
type StackResult struct {
	Shifted    int
	Dropped    int
	Clamped    int
	Applied    int
	Renderable bool
	Mutated    bool
}

// StackAndApply runs the layer discipline: shift prior AI layers down, drop
// the ones past the boundary, namespace and apply the new ops, clamp to
// canvas bounds.
func StackAndApply(b *types.BoardState, ops []types.BoardOp, now time.Time) StackResult {
	var res StackResult
	for _, op := range ops {
		if op.Renderable() {
			res.Renderable = true
			break
		}
	}
	if len(ops) == 0 {
		return res
	}

	before := b.Revision
	res.Shifted, res.Dropped = board.ShiftAILayers(b, board.LayerShiftY, board.LayerBoundaryY)
	namespaced := NamespaceOps(NewLayerPrefix(now), ops)
	res.Applied = board.Apply(b, namespaced, now)
	res.Clamped = board.ClampToCanvasBounds(b)
	res.Mutated = b.Revision != before || res.Shifted > 0 || res.Dropped > 0
	return res
}
