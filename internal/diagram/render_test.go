package diagram

import (
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/types"
)

// applyAndRender runs one patch through the same sequence the AI engine
// uses: mutate the group, then reconcile the board against it.
func applyAndRender(r *types.RoomState, patch *types.DiagramPatch, now time.Time) *types.DiagramGroup {
	g := ApplyPatch(r, patch, now)
	board.Apply(r.Board, ReconcileGroupOps(r.Board, g), now)
	return g
}

func TestReconcileRemovesCleanedUpNodesFromBoard(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)

	g := applyAndRender(r, patchWithNodes("binary tree", types.DiagramTree, "A", "B", "C"), now)
	prefix := "dg_" + g.ID + "_"
	if _, ok := r.Board.Elements[prefix+"node_n_c"]; !ok {
		t.Fatalf("node n_c should render initially")
	}

	applyAndRender(r, patchWithNodes("binary tree", types.DiagramTree, "A", "B"), now)
	if _, ok := r.Board.Elements[prefix+"node_n_c"]; ok {
		t.Fatalf("board should drop node n_c after cleanup removed it from the group")
	}
	if _, ok := r.Board.Elements[prefix+"node_n_a"]; !ok {
		t.Fatalf("surviving node n_a should stay on the board")
	}
	if _, ok := r.Board.Elements[prefix+"node_n_b"]; !ok {
		t.Fatalf("surviving node n_b should stay on the board")
	}
}

func TestReconcileRemovesPreShiftElementsFromBoard(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)

	g := applyAndRender(r, patchWithNodes("binary search tree", types.DiagramTree, "A", "B"), now)
	prefix := "dg_" + g.ID + "_"

	applyAndRender(r, patchWithNodes("checkout pipeline", types.DiagramSystemBlocks, "Client", "API"), now)
	if _, ok := r.Board.Elements[prefix+"node_n_a"]; ok {
		t.Fatalf("pre-shift node n_a should leave the board after a topic shift")
	}
	if _, ok := r.Board.Elements[prefix+"node_n_b"]; ok {
		t.Fatalf("pre-shift node n_b should leave the board after a topic shift")
	}
	if _, ok := r.Board.Elements[prefix+"node_n_client"]; !ok {
		t.Fatalf("post-shift node n_client should render")
	}
}

func TestReconcileRemovesEdgeAndLabelFromBoard(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)

	withEdge := patchWithNodes("checkout pipeline", types.DiagramSystemBlocks, "Client", "API")
	withEdge.Actions = append(withEdge.Actions, types.DiagramPatchAction{
		Type: types.PatchUpsertEdge, ID: "e1", From: "n_client", To: "n_api", Label: "requests",
	})
	g := applyAndRender(r, withEdge, now)
	prefix := "dg_" + g.ID + "_"
	if _, ok := r.Board.Elements[prefix+"edge_e1"]; !ok {
		t.Fatalf("edge should render initially")
	}
	if _, ok := r.Board.Elements[prefix+"edgelabel_e1"]; !ok {
		t.Fatalf("edge label should render initially")
	}

	applyAndRender(r, patchWithNodes("checkout pipeline", types.DiagramSystemBlocks, "Client", "API"), now)
	if _, ok := r.Board.Elements[prefix+"edge_e1"]; ok {
		t.Fatalf("board should drop the removed edge")
	}
	if _, ok := r.Board.Elements[prefix+"edgelabel_e1"]; ok {
		t.Fatalf("board should drop the removed edge's label")
	}
}

func TestReconcileKeepsPinnedGroupElements(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)

	g := applyAndRender(r, patchWithNodes("binary tree", types.DiagramTree, "A", "B", "C"), now)
	if !PinCurrent(r) {
		t.Fatalf("PinCurrent should succeed with an active group")
	}
	applyAndRender(r, patchWithNodes("binary tree", types.DiagramTree, "A"), now)

	prefix := "dg_" + g.ID + "_"
	for _, id := range []string{"node_n_a", "node_n_b", "node_n_c"} {
		if _, ok := r.Board.Elements[prefix+id]; !ok {
			t.Fatalf("pinned group element %s should stay on the board", id)
		}
	}
}
