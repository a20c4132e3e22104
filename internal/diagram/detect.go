package diagram

import (
	"github.com/yungbote/senseboard-backend/internal/types"
)

// DetectType scores tree vs system keyword counts. Tree wins ties when its
// score is positive; otherwise system blocks; otherwise flowchart.
func DetectType(text string) string {
	tokens := Tokens(text)
	treeScore := countKeywords(tokens, treeWordSet)
	systemScore := countKeywords(tokens, systemWordSet)

	if treeScore > 0 && treeScore >= systemScore {
		return types.DiagramTree
	}
	if systemScore > 0 {
		return types.DiagramSystemBlocks
	}
	return types.DiagramFlowchart
}
