package diagram

import (
	"github.com/yungbote/senseboard-backend/internal/types"
)

// BuildPatch is the deterministic engine: detect the diagram type of the raw
// text and run the matching builder. The result is the reference every
// provider patch is reviewed against, and the fallback when providers fail.
func BuildPatch(text string) *types.DiagramPatch {
	switch DetectType(text) {
	case types.DiagramTree:
		return buildTreePatch(text)
	case types.DiagramSystemBlocks:
		return buildSystemPatch(text)
	default:
		return buildFlowchartPatch(text)
	}
}
