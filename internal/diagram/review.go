package diagram

import (
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

type ReviewConfig struct {
	MaxRevisions        int
	ConfidenceThreshold float64
}

// Score rates a candidate patch against the deterministic reference:
// 0.4 * type match + 0.35 * node coverage + 0.25 * edge coverage, with
// coverage computed over normalized labels / endpoint pairs.
func Score(candidate, reference *types.DiagramPatch) float64 {
	typeMatch := 0.0
	if candidate.DiagramType == reference.DiagramType {
		typeMatch = 1.0
	}
	return 0.4*typeMatch + 0.35*nodeCoverage(candidate, reference) + 0.25*edgeCoverage(candidate, reference)
}

func nodeLabels(p *types.DiagramPatch) map[string]bool {
	out := map[string]bool{}
	for _, a := range p.Actions {
		if a.Type == types.PatchUpsertNode {
			if norm := NormalizeLabel(a.Label); norm != "" {
				out[norm] = true
			}
		}
	}
	return out
}

func edgePairs(p *types.DiagramPatch) map[string]bool {
	out := map[string]bool{}
	for _, a := range p.Actions {
		if a.Type == types.PatchUpsertEdge {
			out[NormalizeLabel(a.From)+">"+NormalizeLabel(a.To)] = true
		}
	}
	return out
}

func coverage(have, want map[string]bool) float64 {
	if len(want) == 0 {
		return 1
	}
	hit := 0
	for k := range want {
		if have[k] {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}

func nodeCoverage(candidate, reference *types.DiagramPatch) float64 {
	return coverage(nodeLabels(candidate), nodeLabels(reference))
}

func edgeCoverage(candidate, reference *types.DiagramPatch) float64 {
	return coverage(edgePairs(candidate), edgePairs(reference))
}

func clonePatch(p *types.DiagramPatch) *types.DiagramPatch {
	out := *p
	out.Actions = append([]types.DiagramPatchAction{}, p.Actions...)
	out.OpenQuestions = append([]string{}, p.OpenQuestions...)
	out.Conflicts = append([]string{}, p.Conflicts...)
	return &out
}

// mergeMissing appends reference actions whose node label / edge endpoints
// the candidate lacks.
func mergeMissing(candidate, reference *types.DiagramPatch) *types.DiagramPatch {
	merged := clonePatch(candidate)
	haveNodes := nodeLabels(candidate)
	haveEdges := edgePairs(candidate)
	for _, a := range reference.Actions {
		switch a.Type {
		case types.PatchUpsertNode:
			if !haveNodes[NormalizeLabel(a.Label)] {
				merged.Actions = append(merged.Actions, a)
			}
		case types.PatchUpsertEdge:
			if !haveEdges[NormalizeLabel(a.From)+">"+NormalizeLabel(a.To)] {
				merged.Actions = append(merged.Actions, a)
			}
		}
	}
	merged.ClampLimits()
	return merged
}

// ReviewAndRevise runs the review loop: accept the candidate once its score
// clears the threshold (bumping confidence), otherwise merge in the missing
// reference structure on pass 0 and fall back to the reference wholesale on
// later passes. A candidate that still scores low keeps a conflict note.
//
// Override rule: when the reference says tree, the candidate disagrees, and
// the transcript window literally mentions a tree, the candidate is discarded.
func ReviewAndRevise(candidate, reference *types.DiagramPatch, transcriptWindow string, cfg ReviewConfig) *types.DiagramPatch {
	if candidate == nil {
		return reference
	}
	if reference.DiagramType == types.DiagramTree &&
		candidate.DiagramType != types.DiagramTree &&
		strings.Contains(strings.ToLower(transcriptWindow), "tree") {
		return reference
	}

	threshold := cfg.ConfidenceThreshold
	current := candidate
	passes := 0
	score := Score(current, reference)
	for score < threshold && passes < cfg.MaxRevisions {
		if passes == 0 {
			current = mergeMissing(current, reference)
		} else {
			current = clonePatch(reference)
		}
		passes++
		score = Score(current, reference)
	}

	if score >= threshold {
		current.Confidence += 0.05
	} else {
		current = clonePatch(current)
		current.Conflicts = append(current.Conflicts, fmt.Sprintf(
			"Review score %.0f%% stayed below %.0f%% after %d pass(es).",
			score*100, threshold*100, passes,
		))
	}
	current.ClampLimits()
	return current
}
