package diagram

import (
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	systemBlockWidth  = 150.0
	systemBlockHeight = 70.0
	systemStepX       = 190.0
	systemStartX      = 40.0
	systemRowY        = 220.0
)

var defaultSystemChain = []string{"Client", "API Gateway", "Service", "Postgres"}

var dbLabelHints = []string{"postgres", "database", "db", "mysql", "mongo", "sqlite"}

// parseSystemChain reads "->" chains out of the text, keeping first-seen
// ordering across lines.
func parseSystemChain(text string) []string {
	var chain []string
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "->") {
			continue
		}
		for _, part := range strings.Split(line, "->") {
			label := strings.TrimSpace(strings.Trim(part, ".,;:!?"))
			if label == "" {
				continue
			}
			key := NormalizeLabel(label)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			chain = append(chain, label)
		}
	}
	return chain
}

func looksLikeDB(label string) bool {
	norm := NormalizeLabel(label)
	for _, hint := range dbLabelHints {
		for _, tok := range strings.Fields(norm) {
			if tok == hint {
				return true
			}
		}
	}
	return false
}

// buildSystemPatch lays a left-to-right block chain. Mentions of redis insert
// a cache block ahead of the database when the chain lacks one.
func buildSystemPatch(text string) *types.DiagramPatch {
	chain := parseSystemChain(text)
	parsed := len(chain) >= 2
	if !parsed {
		chain = append([]string{}, defaultSystemChain...)
	}

	if strings.Contains(strings.ToLower(text), "redis") {
		hasRedis := false
		for _, label := range chain {
			if strings.Contains(strings.ToLower(label), "redis") {
				hasRedis = true
				break
			}
		}
		if !hasRedis {
			insertAt := len(chain)
			for i, label := range chain {
				if looksLikeDB(label) {
					insertAt = i
					break
				}
			}
			chain = append(chain[:insertAt], append([]string{"Redis Cache"}, chain[insertAt:]...)...)
		}
	}

	patch := &types.DiagramPatch{
		Topic:       "system blocks",
		DiagramType: types.DiagramSystemBlocks,
		Confidence:  0.35,
	}
	if parsed {
		patch.Confidence = 0.75
		patch.Topic = NormalizeLabel(chain[0]) + " flow"
	}

	nodeID := func(label string) string {
		return "b_" + strings.ReplaceAll(NormalizeLabel(label), " ", "_")
	}

	for i, label := range chain {
		patch.Actions = append(patch.Actions, types.DiagramPatchAction{
			Type:   types.PatchUpsertNode,
			ID:     nodeID(label),
			Label:  label,
			X:      systemStartX + float64(i)*systemStepX,
			Y:      systemRowY,
			Width:  systemBlockWidth,
			Height: systemBlockHeight,
		})
	}
	for i := 0; i+1 < len(chain); i++ {
		patch.Actions = append(patch.Actions, types.DiagramPatchAction{
			Type:  types.PatchUpsertEdge,
			ID:    fmt.Sprintf("e_%s_%s", nodeID(chain[i]), nodeID(chain[i+1])),
			From:  nodeID(chain[i]),
			To:    nodeID(chain[i+1]),
			Label: "request",
		})
	}

	patch.Actions = append(patch.Actions,
		types.DiagramPatchAction{Type: types.PatchSetTitle, Title: "System Blocks"},
		types.DiagramPatchAction{Type: types.PatchLayoutHint, Hint: types.LayoutLeftToRight},
	)
	patch.ClampLimits()
	return patch
}
