package diagram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	treeNodeWidth  = 160.0
	treeNodeHeight = 64.0
	treeGapX       = 180.0
	treeGapY       = 150.0
	treeCenterX    = 640.0
	treeTopY       = 120.0
)

var (
	rootRe     = regexp.MustCompile(`(?i)\broot(?:\s+(?:is|node)\s*)?\s+([a-z0-9_-]+)`)
	hasRe      = regexp.MustCompile(`(?i)\b([a-z0-9_-]+)\s+has(?:\s+children)?\s+([a-z0-9_,\s-]+?)(?:[.!?]|$)`)
	childrenRe = regexp.MustCompile(`(?i)\bchildren(?:\s+(?:are|of))?\s+([a-z0-9_,\s-]+?)(?:[.!?]|$)`)
	namedTreeRe = regexp.MustCompile(`(?i)\b([a-z0-9_-]+)\s+tree\b`)
)

// treeStopwords filters "<noun> tree" aliases; parseStopwords filters
// relation operands and deliberately allows single-letter node names.
var treeStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"my": true, "our": true, "binary": true, "search": true, "whole": true,
	"same": true, "new": true, "simple": true,
}

var parseStopwords = map[string]bool{
	"the": true, "this": true, "that": true, "my": true, "our": true,
	"it": true, "is": true, "of": true, "each": true, "every": true,
}

type treeModel struct {
	topic    string
	root     string
	children map[string][]string
	order    []string // insertion order of discovered nodes
	present  map[string]bool
}

func (m *treeModel) addNode(name string) {
	name = strings.TrimSpace(name)
	if name == "" || m.present[name] {
		return
	}
	m.present[name] = true
	m.order = append(m.order, name)
}

func (m *treeModel) addEdge(parent, child string) {
	m.addNode(parent)
	m.addNode(child)
	for _, c := range m.children[parent] {
		if c == child {
			return
		}
	}
	m.children[parent] = append(m.children[parent], child)
}

func splitNames(raw string) []string {
	raw = strings.ReplaceAll(strings.ToLower(raw), " and ", ",")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || parseStopwords[p] {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return out
}

// parseTreeRelations extracts parent/child structure from free text.
func parseTreeRelations(text string) *treeModel {
	m := &treeModel{
		children: map[string][]string{},
		present:  map[string]bool{},
	}

	if match := rootRe.FindStringSubmatch(text); match != nil {
		name := strings.TrimSpace(match[1])
		if !parseStopwords[strings.ToLower(name)] {
			m.root = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
			m.addNode(m.root)
		}
	}

	for _, match := range hasRe.FindAllStringSubmatch(text, -1) {
		parentRaw := strings.ToLower(strings.TrimSpace(match[1]))
		if parseStopwords[parentRaw] {
			continue
		}
		parent := strings.ToUpper(parentRaw[:1]) + parentRaw[1:]
		for _, child := range splitNames(match[2]) {
			m.addEdge(parent, child)
		}
		if m.root == "" {
			m.root = parent
		}
	}

	if m.root != "" {
		// Bare "children X and Y" attaches to the known root.
		for _, match := range childrenRe.FindAllStringSubmatch(text, -1) {
			for _, child := range splitNames(match[1]) {
				if child != m.root {
					m.addEdge(m.root, child)
				}
			}
		}
	}

	// "<noun> tree" phrases name the topic; two or more aliases referring to
	// a tree imply one shared structure rather than several.
	aliases := []string{}
	for _, match := range namedTreeRe.FindAllStringSubmatch(text, -1) {
		alias := strings.ToLower(strings.TrimSpace(match[1]))
		if alias == "" || treeStopwords[alias] {
			continue
		}
		aliases = append(aliases, alias)
	}
	if len(aliases) > 0 {
		m.topic = aliases[0] + " tree"
		if len(aliases) >= 2 && m.root == "" {
			shared := strings.ToUpper(aliases[0][:1]) + aliases[0][1:]
			m.root = shared
			m.addNode(shared)
		}
	}

	return m
}

// canonicalTree is the fallback when nothing parses: a 5-node sample.
func canonicalTree() *treeModel {
	m := &treeModel{children: map[string][]string{}, present: map[string]bool{}, root: "A"}
	m.addEdge("A", "B")
	m.addEdge("A", "C")
	m.addEdge("B", "D")
	m.addEdge("B", "E")
	m.topic = "sample tree"
	return m
}

func detectTraversalIntent(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "preorder") || strings.Contains(lower, "pre-order"):
		return "preorder"
	case strings.Contains(lower, "postorder") || strings.Contains(lower, "post-order"):
		return "postorder"
	case strings.Contains(lower, "bfs") || strings.Contains(lower, "level order") || strings.Contains(lower, "breadth"):
		return "bfs"
	default:
		return ""
	}
}

func (m *treeModel) traverse(kind string) []string {
	if m.root == "" {
		return nil
	}
	var out []string
	switch kind {
	case "preorder":
		var walk func(string)
		walk = func(n string) {
			out = append(out, n)
			for _, c := range m.children[n] {
				walk(c)
			}
		}
		walk(m.root)
	case "postorder":
		var walk func(string)
		walk = func(n string) {
			for _, c := range m.children[n] {
				walk(c)
			}
			out = append(out, n)
		}
		walk(m.root)
	case "bfs":
		queue := []string{m.root}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			out = append(out, n)
			queue = append(queue, m.children[n]...)
		}
	}
	return out
}

// levels groups nodes by BFS depth from the root; orphans go to level 0.
func (m *treeModel) levels() [][]string {
	depth := map[string]int{}
	if m.root != "" {
		depth[m.root] = 0
		queue := []string{m.root}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, c := range m.children[n] {
				if _, seen := depth[c]; !seen {
					depth[c] = depth[n] + 1
					queue = append(queue, c)
				}
			}
		}
	}
	maxDepth := 0
	for _, node := range m.order {
		if d, ok := depth[node]; ok && d > maxDepth {
			maxDepth = d
		}
	}
	rows := make([][]string, maxDepth+1)
	for _, node := range m.order {
		d := depth[node] // orphans land on row 0
		rows[d] = append(rows[d], node)
	}
	return rows
}

// buildTreePatch renders the parsed (or canonical) tree as a diagram patch:
// BFS-level layout, parent->child edges, optional traversal highlight order.
func buildTreePatch(text string) *types.DiagramPatch {
	model := parseTreeRelations(text)
	parsed := len(model.order) > 1
	if len(model.order) == 0 {
		model = canonicalTree()
	}

	topic := model.topic
	if topic == "" {
		topic = "tree"
	}

	patch := &types.DiagramPatch{
		Topic:       topic,
		DiagramType: types.DiagramTree,
		Confidence:  0.35,
	}
	if parsed {
		patch.Confidence = 0.8
	}

	nodeID := func(name string) string {
		return "n_" + strings.ReplaceAll(NormalizeLabel(name), " ", "_")
	}

	for level, row := range model.levels() {
		rowWidth := float64(len(row)-1) * treeGapX
		startX := treeCenterX - rowWidth/2
		for i, name := range row {
			patch.Actions = append(patch.Actions, types.DiagramPatchAction{
				Type:   types.PatchUpsertNode,
				ID:     nodeID(name),
				Label:  name,
				X:      startX + float64(i)*treeGapX,
				Y:      treeTopY + float64(level)*treeGapY,
				Width:  treeNodeWidth,
				Height: treeNodeHeight,
			})
		}
	}

	for _, parent := range model.order {
		for _, child := range model.children[parent] {
			patch.Actions = append(patch.Actions, types.DiagramPatchAction{
				Type: types.PatchUpsertEdge,
				ID:   fmt.Sprintf("e_%s_%s", nodeID(parent), nodeID(child)),
				From: nodeID(parent),
				To:   nodeID(child),
			})
		}
	}

	title := strings.ToUpper(topic[:1]) + topic[1:]
	patch.Actions = append(patch.Actions,
		types.DiagramPatchAction{Type: types.PatchSetTitle, Title: title},
	)

	if intent := detectTraversalIntent(text); intent != "" {
		order := model.traverse(intent)
		ids := make([]string, 0, len(order))
		for _, name := range order {
			ids = append(ids, nodeID(name))
		}
		patch.Actions = append(patch.Actions,
			types.DiagramPatchAction{Type: types.PatchSetNotes, Notes: []string{"Traversal: " + intent}},
			types.DiagramPatchAction{Type: types.PatchHighlightOrder, Order: ids},
		)
	}

	patch.Actions = append(patch.Actions,
		types.DiagramPatchAction{Type: types.PatchLayoutHint, Hint: types.LayoutTree},
	)
	patch.ClampLimits()
	return patch
}
