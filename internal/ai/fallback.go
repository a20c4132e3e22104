package ai

import (
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	fallbackMaxLines  = 6
	fallbackRowWidth  = 980.0
	fallbackRowHeight = 120.0
	fallbackRowGap    = 56.0
	fallbackStartX    = 80.0
	fallbackStartY    = 140.0
	fallbackMaxChars  = 110
)

// TranscriptFallbackOps renders the last transcript lines as a titled column
// of connected rectangles. Slot ids are fixed so the output behaves like a
// ring: stale slots past the current line count are deleted.
func TranscriptFallbackOps(lines []string) []types.BoardOp {
	lines = tail(lines, fallbackMaxLines)
	var ops []types.BoardOp

	ops = append(ops, types.BoardOp{
		Type: types.OpUpsertElement,
		Element: &types.BoardElement{
			ID:   "fallback_title",
			Kind: types.ElementText,
			X:    fallbackStartX,
			Y:    fallbackStartY - 44,
			Text: "Conversation so far",
			Style: map[string]any{
				"fontSize": float64(24),
			},
		},
	})

	for i := 0; i < fallbackMaxLines; i++ {
		slotID := fmt.Sprintf("fallback_row_%d", i)
		arrowID := fmt.Sprintf("fallback_arrow_%d", i)
		if i >= len(lines) {
			ops = append(ops,
				types.BoardOp{Type: types.OpDeleteElement, ID: slotID},
				types.BoardOp{Type: types.OpDeleteElement, ID: arrowID},
			)
			continue
		}
		text := strings.TrimSpace(lines[i])
		if len(text) > fallbackMaxChars {
			text = text[:fallbackMaxChars-3] + "..."
		}
		y := fallbackStartY + float64(i)*(fallbackRowHeight+fallbackRowGap)
		ops = append(ops, types.BoardOp{
			Type: types.OpUpsertElement,
			Element: &types.BoardElement{
				ID:   slotID,
				Kind: types.ElementRect,
				X:    fallbackStartX,
				Y:    y,
				W:    fallbackRowWidth,
				H:    fallbackRowHeight,
				Text: text,
			},
		})
		if i > 0 {
			prevBottom := y - fallbackRowGap
			ops = append(ops, types.BoardOp{
				Type: types.OpUpsertElement,
				Element: &types.BoardElement{
					ID:   arrowID,
					Kind: types.ElementArrow,
					Points: [][]float64{
						{fallbackStartX + fallbackRowWidth/2, prevBottom},
						{fallbackStartX + fallbackRowWidth/2, y},
					},
				},
			})
		} else {
			ops = append(ops, types.BoardOp{Type: types.OpDeleteElement, ID: arrowID})
		}
	}
	return ops
}
