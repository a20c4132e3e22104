package ai

import (
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

// labelCandidates flattens summary, payload text lines, then transcript
// lines into short label strings.
func labelCandidates(summary, text string, transcript []string) []string {
	var out []string
	push := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if len(s) > 48 {
			s = s[:45] + "..."
		}
		out = append(out, s)
	}
	push(summary)
	for _, line := range strings.Split(text, "\n") {
		push(line)
	}
	for i := len(transcript) - 1; i >= 0; i-- {
		line := transcript[i]
		if idx := strings.Index(line, ": "); idx >= 0 {
			line = line[idx+2:]
		}
		push(line)
	}
	return out
}

func collectUpserts(ops []types.BoardOp) []*types.BoardElement {
	var out []*types.BoardElement
	for i := range ops {
		switch ops[i].Type {
		case types.OpUpsertElement:
			if ops[i].Element != nil {
				out = append(out, ops[i].Element)
			}
		case types.OpBatch:
			out = append(out, collectUpserts(ops[i].Ops)...)
		}
	}
	return out
}

func isVisualAnchor(el *types.BoardElement) bool {
	switch el.Kind {
	case types.ElementRect, types.ElementEllipse, types.ElementDiamond, types.ElementTriangle, types.ElementFrame:
		return true
	}
	return false
}

func isTextAnchor(el *types.BoardElement) bool {
	return el.Kind == types.ElementText || el.Kind == types.ElementSticky
}

func nearAnchor(visual, text *types.BoardElement) bool {
	marginX := math.Max(120, 0.55*visual.W)
	marginY := math.Max(90, 0.45*visual.H)
	cx := visual.X + visual.W/2
	cy := visual.Y + visual.H/2
	return math.Abs(text.X-cx) <= visual.W/2+marginX &&
		math.Abs(text.Y-cy) <= visual.H/2+marginY
}

// AutoLabel appends short text labels next to unlabeled shapes when the
// labeled share of the sketch falls below 75%. Returns the grown op list.
func AutoLabel(ops []types.BoardOp, summary, text string, transcript []string) []types.BoardOp {
	elements := collectUpserts(ops)
	var visuals, texts []*types.BoardElement
	for _, el := range elements {
		if isVisualAnchor(el) {
			visuals = append(visuals, el)
		} else if isTextAnchor(el) {
			texts = append(texts, el)
		}
	}
	if len(visuals) == 0 {
		return ops
	}
	threshold := int(math.Ceil(0.75 * float64(len(visuals))))
	if len(texts) >= threshold {
		return ops
	}

	var unlabeled []*types.BoardElement
	for _, v := range visuals {
		// Shapes carrying their own text need no external label.
		if v.Text != "" || v.Title != "" {
			continue
		}
		labeled := false
		for _, t := range texts {
			if nearAnchor(v, t) {
				labeled = true
				break
			}
		}
		if !labeled {
			unlabeled = append(unlabeled, v)
		}
	}

	candidates := labelCandidates(summary, text, transcript)
	added := 0
	for i, v := range unlabeled {
		if added >= maxSalvagedLabel || added >= len(candidates) {
			break
		}
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   fmt.Sprintf("autolabel_%d", i+1),
				Kind: types.ElementText,
				X:    v.X + 8,
				Y:    v.Y + v.H/2 - 10,
				Text: candidates[added],
				Style: map[string]any{
					"fontSize": float64(14),
				},
			},
		})
		added++
	}
	return ops
}
