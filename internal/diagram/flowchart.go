package diagram

import (
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

var flowEmojiByKeyword = []struct {
	keyword string
	emoji   string
}{
	{"plan", "🎯"},
	{"goal", "🎯"},
	{"bug", "🐞"},
	{"error", "🐞"},
	{"idea", "💡"},
	{"data", "📊"},
	{"metric", "📊"},
	{"meeting", "🗓️"},
	{"launch", "🚀"},
	{"deploy", "🚀"},
}

func flowEmoji(text string) string {
	lower := strings.ToLower(text)
	for _, pair := range flowEmojiByKeyword {
		if strings.Contains(lower, pair.keyword) {
			return pair.emoji
		}
	}
	return "📝"
}

func splitKeyPhrases(text string, max int) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, max)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == max {
			break
		}
	}
	return out
}

// buildFlowchartPatch emits one main block plus up to two detail blocks from
// the first key phrases of the text.
func buildFlowchartPatch(text string) *types.DiagramPatch {
	phrases := splitKeyPhrases(text, 3)
	if len(phrases) == 0 {
		phrases = []string{"Discussion"}
	}

	main := phrases[0]
	if len(main) > 140 {
		main = main[:140]
	}

	patch := &types.DiagramPatch{
		Topic:       NormalizeLabel(main),
		DiagramType: types.DiagramFlowchart,
		Confidence:  0.4,
	}

	patch.Actions = append(patch.Actions, types.DiagramPatchAction{
		Type:   types.PatchUpsertNode,
		ID:     "f_main",
		Label:  flowEmoji(text) + " " + main,
		X:      80,
		Y:      140,
		Width:  620,
		Height: 190,
	})
	for i, detail := range phrases[1:] {
		if len(detail) > 90 {
			detail = detail[:90]
		}
		patch.Actions = append(patch.Actions, types.DiagramPatchAction{
			Type:   types.PatchUpsertNode,
			ID:     fmt.Sprintf("f_detail_%d", i+1),
			Label:  detail,
			X:      80 + float64(i)*300,
			Y:      370,
			Width:  280,
			Height: 100,
		})
		patch.Actions = append(patch.Actions, types.DiagramPatchAction{
			Type: types.PatchUpsertEdge,
			ID:   fmt.Sprintf("e_main_detail_%d", i+1),
			From: "f_main",
			To:   fmt.Sprintf("f_detail_%d", i+1),
		})
	}

	patch.Actions = append(patch.Actions,
		types.DiagramPatchAction{Type: types.PatchSetTitle, Title: "Flow"},
		types.DiagramPatchAction{Type: types.PatchLayoutHint, Hint: types.LayoutTopDown},
	)
	patch.ClampLimits()
	return patch
}
