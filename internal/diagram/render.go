package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

// RenderGroupOps translates a diagram group into board ops: one rect per
// node, one arrow per edge (center to center), edge labels, a title text, a
// notes sticky, and highlight badges when a traversal order exists. Element
// ids are namespaced by group so re-renders upsert in place.
func RenderGroupOps(g *types.DiagramGroup) []types.BoardOp {
	if g == nil {
		return nil
	}
	prefix := "dg_" + g.ID + "_"
	var ops []types.BoardOp

	if g.Title != "" {
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   prefix + "title",
				Kind: types.ElementText,
				X:    g.Bounds.X,
				Y:    g.Bounds.Y - 36,
				Text: g.Title,
				Style: map[string]any{
					"fontSize": float64(24),
				},
			},
		})
	}

	for _, id := range sortedNodeIDs(g) {
		n := g.Nodes[id]
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   prefix + "node_" + n.ID,
				Kind: types.ElementRect,
				X:    n.X,
				Y:    n.Y,
				W:    n.Width,
				H:    n.Height,
				Text: n.Label,
			},
		})
	}

	for _, id := range sortedEdgeIDs(g) {
		e := g.Edges[id]
		from, okFrom := g.Nodes[e.From]
		to, okTo := g.Nodes[e.To]
		if !okFrom || !okTo {
			continue
		}
		fx, fy := from.X+from.Width/2, from.Y+from.Height/2
		tx, ty := to.X+to.Width/2, to.Y+to.Height/2
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:     prefix + "edge_" + e.ID,
				Kind:   types.ElementArrow,
				Points: [][]float64{{fx, fy}, {tx, ty}},
			},
		})
		if e.Label != "" {
			ops = append(ops, types.BoardOp{
				Type: types.OpUpsertElement,
				Element: &types.BoardElement{
					ID:   prefix + "edgelabel_" + e.ID,
					Kind: types.ElementText,
					X:    (fx+tx)/2 - 30,
					Y:    (fy+ty)/2 - 24,
					Text: e.Label,
					Style: map[string]any{
						"fontSize": float64(13),
					},
				},
			})
		}
	}

	for i, nodeID := range g.HighlightOrder {
		n, ok := g.Nodes[nodeID]
		if !ok {
			continue
		}
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   fmt.Sprintf("%sbadge_%d", prefix, i+1),
				Kind: types.ElementText,
				X:    n.X + n.Width - 14,
				Y:    n.Y - 22,
				Text: fmt.Sprintf("%d", i+1),
				Style: map[string]any{
					"fontSize": float64(14),
					"stroke":   "#d97706",
				},
			},
		})
	}

	if len(g.Notes) > 0 {
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   prefix + "notes",
				Kind: types.ElementSticky,
				X:    g.Bounds.X + g.Bounds.W + 30,
				Y:    g.Bounds.Y,
				W:    220,
				H:    float64(50 + 22*len(g.Notes)),
				Text: strings.Join(g.Notes, "\n"),
			},
		})
	}

	return ops
}

// ReconcileGroupOps renders the group and appends a deleteElement op for
// every board element in the group's id namespace that the fresh render no
// longer produces. Cleanup and topic shifts drop nodes/edges from the group;
// this is where those removals (and their labels, badges, notes, title)
// reach the board.
func ReconcileGroupOps(b *types.BoardState, g *types.DiagramGroup) []types.BoardOp {
	ops := RenderGroupOps(g)
	if g == nil || b == nil {
		return ops
	}
	keep := map[string]bool{}
	for _, op := range ops {
		if op.Element != nil {
			keep[op.Element.ID] = true
		}
	}
	prefix := "dg_" + g.ID + "_"
	for _, id := range b.Order {
		if strings.HasPrefix(id, prefix) && !keep[id] {
			ops = append(ops, types.BoardOp{Type: types.OpDeleteElement, ID: id})
		}
	}
	return ops
}

func sortedNodeIDs(g *types.DiagramGroup) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedEdgeIDs(g *types.DiagramGroup) []string {
	ids := make([]string, 0, len(g.Edges))
	for id := range g.Edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
