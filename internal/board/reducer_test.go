package board

import (
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/types"
)

func rectOp(id string, x, y, w, h float64) types.BoardOp {
	return types.BoardOp{
		Type: types.OpUpsertElement,
		Element: &types.BoardElement{
			ID: id, Kind: types.ElementRect, X: x, Y: y, W: w, H: h,
			CreatedBy: types.CreatedByAI,
		},
	}
}

func checkOrderMatchesElements(t *testing.T, b *types.BoardState) {
	t.Helper()
	if len(b.Order) != len(b.Elements) {
		t.Fatalf("order/elements size mismatch: order=%d elements=%d", len(b.Order), len(b.Elements))
	}
	seen := map[string]bool{}
	for _, id := range b.Order {
		if seen[id] {
			t.Fatalf("duplicate id in order: %s", id)
		}
		seen[id] = true
		if _, ok := b.Elements[id]; !ok {
			t.Fatalf("order references missing element: %s", id)
		}
	}
}

func TestUpsertPreservesOrderPosition(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 0, 0, 10, 10), rectOp("b", 0, 0, 10, 10)}, now)

	replaced := rectOp("a", 100, 100, 20, 20)
	Apply(b, []types.BoardOp{replaced}, now)

	if b.Order[0] != "a" || b.Order[1] != "b" {
		t.Fatalf("order changed on in-place upsert: %v", b.Order)
	}
	if b.Elements["a"].X != 100 {
		t.Fatalf("upsert did not replace element: x=%v", b.Elements["a"].X)
	}
	checkOrderMatchesElements(t, b)
}

func TestUpsertRejectsMissingRequiredFields(t *testing.T) {
	b := types.NewBoardState()
	bad := types.BoardOp{
		Type:    types.OpUpsertElement,
		Element: &types.BoardElement{ID: "bad", Kind: types.ElementRect, X: 1, Y: 1},
	}
	if applied := Apply(b, []types.BoardOp{bad}, time.Now()); applied != 0 {
		t.Fatalf("rect without w/h should be skipped, applied=%d", applied)
	}
	if b.Revision != 0 {
		t.Fatalf("revision bumped for skipped op: %d", b.Revision)
	}
}

func TestReapplyIdenticalOpsIsShapeIdempotent(t *testing.T) {
	b := types.NewBoardState()
	ops := []types.BoardOp{rectOp("a", 5, 5, 40, 40)}
	now := time.Now()
	Apply(b, ops, now)
	rev := b.Revision
	Apply(b, ops, now)

	if b.Revision != rev+1 {
		t.Fatalf("revision should increment on re-apply: before=%d after=%d", rev, b.Revision)
	}
	if len(b.Order) != 1 || len(b.Elements) != 1 {
		t.Fatalf("shape changed on re-apply: order=%v", b.Order)
	}
}

func TestDeleteRemovesFromBoth(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 0, 0, 10, 10), rectOp("b", 0, 0, 10, 10)}, now)
	Apply(b, []types.BoardOp{{Type: types.OpDeleteElement, ID: "a"}}, now)

	if _, ok := b.Elements["a"]; ok {
		t.Fatalf("element a still present after delete")
	}
	checkOrderMatchesElements(t, b)
}

func TestAppendStrokePointsOnlyLineKinds(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{
		{Type: types.OpUpsertElement, Element: &types.BoardElement{
			ID: "ln", Kind: types.ElementArrow, Points: [][]float64{{0, 0}, {10, 10}},
		}},
		rectOp("r", 0, 0, 10, 10),
	}, now)

	applied := Apply(b, []types.BoardOp{
		{Type: types.OpAppendStrokePoints, ID: "ln", Points: [][]float64{{20, 20}, {30}}},
		{Type: types.OpAppendStrokePoints, ID: "r", Points: [][]float64{{1, 1}}},
	}, now)
	if applied != 1 {
		t.Fatalf("want 1 applied append, got %d", applied)
	}
	if got := len(b.Elements["ln"].Points); got != 3 {
		t.Fatalf("want 3 points after filtered append, got %d", got)
	}
}

func TestSetElementTextFrameSetsTitle(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{
		{Type: types.OpUpsertElement, Element: &types.BoardElement{ID: "f", Kind: types.ElementFrame, W: 100, H: 100}},
	}, now)
	text := "Sprint plan"
	Apply(b, []types.BoardOp{{Type: types.OpSetElementText, ID: "f", Text: &text}}, now)
	if b.Elements["f"].Title != "Sprint plan" {
		t.Fatalf("frame title not set: %q", b.Elements["f"].Title)
	}
	if b.Elements["f"].Text != "" {
		t.Fatalf("frame text should stay empty, got %q", b.Elements["f"].Text)
	}
}

func TestSetElementStyleFiltersValues(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 0, 0, 10, 10)}, now)
	Apply(b, []types.BoardOp{{
		Type: types.OpSetElementStyle,
		ID:   "a",
		Style: map[string]any{
			"fontSize": float64(18),
			"stroke":   "#ff0000",
			"width":    "not-a-number",
		},
	}}, now)
	st := b.Elements["a"].Style
	if st["fontSize"] != float64(18) {
		t.Fatalf("fontSize not merged: %v", st)
	}
	if st["stroke"] != "#ff0000" {
		t.Fatalf("stroke not merged: %v", st)
	}
	if _, ok := st["width"]; ok {
		t.Fatalf("non-numeric width should be rejected: %v", st)
	}
}

func TestDuplicateElement(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 10, 10, 30, 30)}, now)
	Apply(b, []types.BoardOp{{Type: types.OpDuplicateElement, ID: "a", NewID: "a2", DX: 5, DY: 7}}, now)

	dup, ok := b.Elements["a2"]
	if !ok {
		t.Fatalf("duplicate missing")
	}
	if dup.X != 15 || dup.Y != 17 {
		t.Fatalf("duplicate offset wrong: x=%v y=%v", dup.X, dup.Y)
	}
	checkOrderMatchesElements(t, b)
}

func TestSetZIndexAbsoluteRank(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 0, 0, 1, 1), rectOp("b", 0, 0, 1, 1), rectOp("c", 0, 0, 1, 1)}, now)
	z := 0
	Apply(b, []types.BoardOp{{Type: types.OpSetElementZIndex, ID: "c", ZIndex: &z}}, now)
	if b.Order[0] != "c" || b.Order[1] != "a" || b.Order[2] != "b" {
		t.Fatalf("zindex reorder wrong: %v", b.Order)
	}
}

func TestAlignLeft(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 10, 0, 10, 10), rectOp("b", 50, 20, 10, 10)}, now)
	Apply(b, []types.BoardOp{{Type: types.OpAlignElements, IDs: []string{"a", "b"}, Axis: "left"}}, now)
	if b.Elements["a"].X != 10 || b.Elements["b"].X != 10 {
		t.Fatalf("align left failed: a.x=%v b.x=%v", b.Elements["a"].X, b.Elements["b"].X)
	}
}

func TestDistributeRequiresThree(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("a", 0, 0, 10, 10), rectOp("b", 100, 0, 10, 10)}, now)
	applied := Apply(b, []types.BoardOp{{Type: types.OpDistributeElements, IDs: []string{"a", "b"}, Axis: "horizontal"}}, now)
	if applied != 0 {
		t.Fatalf("distribute with two ids should be a no-op")
	}
}

func TestDistributeExplicitGap(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{
		rectOp("a", 0, 0, 10, 10),
		rectOp("b", 12, 0, 10, 10),
		rectOp("c", 21, 0, 10, 10),
	}, now)
	gap := 20.0
	Apply(b, []types.BoardOp{{Type: types.OpDistributeElements, IDs: []string{"a", "b", "c"}, Axis: "horizontal", Gap: &gap}}, now)
	if b.Elements["b"].X != 30 {
		t.Fatalf("b should start at 30, got %v", b.Elements["b"].X)
	}
	if b.Elements["c"].X != 60 {
		t.Fatalf("c should start at 60, got %v", b.Elements["c"].X)
	}
}

func TestBatchSingleRevisionBump(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	batch := types.BoardOp{Type: types.OpBatch, Ops: []types.BoardOp{
		rectOp("a", 0, 0, 10, 10),
		rectOp("b", 0, 0, 10, 10),
		rectOp("c", 0, 0, 10, 10),
	}}
	Apply(b, []types.BoardOp{batch}, now)
	if b.Revision != 1 {
		t.Fatalf("batch should bump revision once, got %d", b.Revision)
	}
	if len(b.Elements) != 3 {
		t.Fatalf("batch ops not applied: %d", len(b.Elements))
	}
}
