package diagram

import (
	"strings"
	"testing"

	"github.com/yungbote/senseboard-backend/internal/types"
)

func actionsOfType(p *types.DiagramPatch, typ string) []types.DiagramPatchAction {
	var out []types.DiagramPatchAction
	for _, a := range p.Actions {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestDetectTypeTreeWinsTies(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"the root node has two children", types.DiagramTree},
		{"client calls the api gateway then the service", types.DiagramSystemBlocks},
		{"let's talk about the launch plan", types.DiagramFlowchart},
		{"tree of services", types.DiagramTree},
	}
	for _, tc := range cases {
		if got := DetectType(tc.text); got != tc.want {
			t.Fatalf("DetectType(%q): want=%s got=%s", tc.text, tc.want, got)
		}
	}
}

func TestTreeBuilderParsesRelations(t *testing.T) {
	p := buildTreePatch("root alpha. alpha has beta and gamma.")
	nodes := actionsOfType(p, types.PatchUpsertNode)
	if len(nodes) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(nodes))
	}
	edges := actionsOfType(p, types.PatchUpsertEdge)
	if len(edges) != 2 {
		t.Fatalf("want 2 edges, got %d", len(edges))
	}
	hints := actionsOfType(p, types.PatchLayoutHint)
	if len(hints) != 1 || hints[0].Hint != types.LayoutTree {
		t.Fatalf("missing tree layout hint: %+v", hints)
	}
}

func TestTreeBuilderCanonicalFallback(t *testing.T) {
	p := buildTreePatch("tree")
	nodes := actionsOfType(p, types.PatchUpsertNode)
	if len(nodes) != 5 {
		t.Fatalf("canonical tree should have 5 nodes, got %d", len(nodes))
	}
	if p.Confidence >= 0.5 {
		t.Fatalf("fallback tree should carry low confidence, got %v", p.Confidence)
	}
}

func TestTreeBuilderTraversalIntent(t *testing.T) {
	p := buildTreePatch("root a. a has b and c. show the preorder traversal")
	orders := actionsOfType(p, types.PatchHighlightOrder)
	if len(orders) != 1 {
		t.Fatalf("want highlightOrder action, got %d", len(orders))
	}
	if len(orders[0].Order) != 3 {
		t.Fatalf("preorder should visit 3 nodes, got %v", orders[0].Order)
	}
	if orders[0].Order[0] != "n_a" {
		t.Fatalf("preorder should start at root, got %v", orders[0].Order)
	}
}

func TestSystemBuilderRedisInsertion(t *testing.T) {
	p := buildSystemPatch("we should add redis for speed")
	nodes := actionsOfType(p, types.PatchUpsertNode)
	labels := make([]string, 0, len(nodes))
	redisIdx, dbIdx := -1, -1
	for i, n := range nodes {
		labels = append(labels, n.Label)
		if strings.Contains(strings.ToLower(n.Label), "redis") {
			redisIdx = i
		}
		if strings.Contains(strings.ToLower(n.Label), "postgres") {
			dbIdx = i
		}
	}
	if redisIdx < 0 {
		t.Fatalf("redis cache not inserted: %v", labels)
	}
	if dbIdx >= 0 && redisIdx > dbIdx {
		t.Fatalf("redis should sit before the database: %v", labels)
	}
}

func TestSystemBuilderParsesArrowChain(t *testing.T) {
	p := buildSystemPatch("browser -> edge proxy -> auth service -> postgres")
	nodes := actionsOfType(p, types.PatchUpsertNode)
	if len(nodes) != 4 {
		t.Fatalf("want 4 blocks, got %d", len(nodes))
	}
	edges := actionsOfType(p, types.PatchUpsertEdge)
	if len(edges) != 3 {
		t.Fatalf("want 3 edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Label != "request" {
			t.Fatalf("edge label should be request, got %q", e.Label)
		}
	}
	for i, n := range nodes {
		wantX := systemStartX + float64(i)*systemStepX
		if n.X != wantX {
			t.Fatalf("block %d x: want=%v got=%v", i, wantX, n.X)
		}
	}
}

func TestFlowchartBuilderThreePhrases(t *testing.T) {
	p := buildFlowchartPatch("Plan the launch. Check staging first! Ship on friday? Extra ignored.")
	nodes := actionsOfType(p, types.PatchUpsertNode)
	if len(nodes) != 3 {
		t.Fatalf("want main + 2 detail nodes, got %d", len(nodes))
	}
	if nodes[0].Width != 620 || nodes[0].Height != 190 {
		t.Fatalf("main block geometry wrong: %+v", nodes[0])
	}
	if !strings.Contains(nodes[0].Label, "🎯") {
		t.Fatalf("plan topic should carry target emoji: %q", nodes[0].Label)
	}
}

func TestPatchClampLimits(t *testing.T) {
	p := &types.DiagramPatch{Confidence: 2.0}
	for i := 0; i < types.MaxPatchNodes+20; i++ {
		p.Actions = append(p.Actions, types.DiagramPatchAction{Type: types.PatchUpsertNode, ID: "n"})
	}
	p.OpenQuestions = []string{"a", "b", "c"}
	p.ClampLimits()
	if p.Confidence != 0.99 {
		t.Fatalf("confidence clamp: %v", p.Confidence)
	}
	if len(p.Actions) != types.MaxPatchNodes {
		t.Fatalf("node cap: %d", len(p.Actions))
	}
	if len(p.OpenQuestions) != 2 {
		t.Fatalf("open question cap: %d", len(p.OpenQuestions))
	}
}
