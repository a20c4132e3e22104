package board

import (
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/types"
)

func TestClampPullsFullyOutsideElements(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{
		rectOp("inside", 100, 100, 50, 50),
		rectOp("far-right", 9000, 100, 50, 50),
		rectOp("far-up", 100, -900, 50, 50),
	}, now)

	adjusted := ClampToCanvasBounds(b)
	if adjusted != 2 {
		t.Fatalf("want 2 adjustments, got %d", adjusted)
	}
	if b.Elements["inside"].X != 100 {
		t.Fatalf("inside element moved: %v", b.Elements["inside"].X)
	}
	fr := ElementBounds(b.Elements["far-right"])
	if fr.MaxX > CanvasMaxX {
		t.Fatalf("far-right still out of bounds: %+v", fr)
	}
	fu := ElementBounds(b.Elements["far-up"])
	if fu.MinY < CanvasMinY {
		t.Fatalf("far-up still out of bounds: %+v", fu)
	}
}

func TestShiftAILayersDropsPastBoundary(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	Apply(b, []types.BoardOp{rectOp("deep", 0, 5400, 40, 40)}, now)
	human := types.BoardOp{Type: types.OpUpsertElement, Element: &types.BoardElement{
		ID: "human", Kind: types.ElementRect, X: 0, Y: 0, W: 40, H: 40, CreatedBy: "member-1",
	}}
	Apply(b, []types.BoardOp{human}, now)

	shifted, dropped := ShiftAILayers(b, LayerShiftY, LayerBoundaryY)
	if shifted != 1 {
		t.Fatalf("only the ai element should shift, shifted=%d", shifted)
	}
	if dropped != 1 {
		t.Fatalf("deep element should drop past boundary, dropped=%d", dropped)
	}
	if b.Elements["human"].Y != 0 {
		t.Fatalf("human element must not shift: y=%v", b.Elements["human"].Y)
	}
}

func TestRepeatedStackingBoundsSurvivors(t *testing.T) {
	b := types.NewBoardState()
	now := time.Now()
	for i := 0; i < 14; i++ {
		ShiftAILayers(b, LayerShiftY, LayerBoundaryY)
		Apply(b, []types.BoardOp{rectOp(fmt.Sprintf("r%d", i), 40, 120, 980, 120)}, now)
	}
	count := 0
	minY, maxY := 1e12, -1e12
	for _, el := range b.Elements {
		count++
		if el.Y < minY {
			minY = el.Y
		}
		if el.Y > maxY {
			maxY = el.Y
		}
	}
	if count > 11 {
		t.Fatalf("too many survivors after 14 layers: %d", count)
	}
	if minY != 120 {
		t.Fatalf("newest layer should sit at y=120, got %v", minY)
	}
	if maxY > LayerBoundaryY {
		t.Fatalf("survivor past boundary: %v", maxY)
	}
}
