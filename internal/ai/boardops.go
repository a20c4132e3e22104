package ai

import (
	"encoding/json"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	maxEnvelopeOps   = 900
	maxNestedBatch   = 600
	textPanelWidth   = 520.0
	textPanelX       = 80.0
	textPanelY       = 60.0
	maxSalvagedLabel = 10
)

// canonicalOpNames maps normalized alias spellings onto the op vocabulary.
var canonicalOpNames = map[string]string{
	"clearboard":         types.OpClearBoard,
	"clear":              types.OpClearBoard,
	"upsertelement":      types.OpUpsertElement,
	"upsert":             types.OpUpsertElement,
	"addelement":         types.OpUpsertElement,
	"createelement":      types.OpUpsertElement,
	"appendstrokepoints": types.OpAppendStrokePoints,
	"appendpoints":       types.OpAppendStrokePoints,
	"deleteelement":      types.OpDeleteElement,
	"delete":             types.OpDeleteElement,
	"remove":             types.OpDeleteElement,
	"removeelement":      types.OpDeleteElement,
	"offsetelement":      types.OpOffsetElement,
	"offset":             types.OpOffsetElement,
	"move":               types.OpOffsetElement,
	"moveelement":        types.OpOffsetElement,
	"setelementgeometry": types.OpSetElementGeometry,
	"setgeometry":        types.OpSetElementGeometry,
	"resize":             types.OpSetElementGeometry,
	"resizeelement":      types.OpSetElementGeometry,
	"setelementstyle":    types.OpSetElementStyle,
	"setstyle":           types.OpSetElementStyle,
	"style":              types.OpSetElementStyle,
	"setelementtext":     types.OpSetElementText,
	"settext":            types.OpSetElementText,
	"duplicateelement":   types.OpDuplicateElement,
	"duplicate":          types.OpDuplicateElement,
	"setelementzindex":   types.OpSetElementZIndex,
	"setzindex":          types.OpSetElementZIndex,
	"zindex":             types.OpSetElementZIndex,
	"alignelements":      types.OpAlignElements,
	"align":              types.OpAlignElements,
	"distributeelements": types.OpDistributeElements,
	"distribute":         types.OpDistributeElements,
	"setviewport":        types.OpSetViewport,
	"viewport":           types.OpSetViewport,
	"batch":              types.OpBatch,
}

var opsAliasKeys = []string{"ops", "operations", "items", "build_ops", "buildOps", "boardOps"}
var typeAliasKeys = []string{"type", "op", "action"}

// Envelope is the coerced board_ops payload.
type Envelope struct {
	Kind          string          `json:"kind"`
	SchemaVersion int             `json:"schemaVersion"`
	Summary       string          `json:"summary,omitempty"`
	Text          string          `json:"text,omitempty"`
	Ops           []types.BoardOp `json:"ops"`
}

func normalizeOpName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func rawOpsList(obj map[string]any) []any {
	for _, key := range opsAliasKeys {
		if list, ok := obj[key].([]any); ok {
			return list
		}
	}
	return nil
}

// CoerceOp turns one loose map into a BoardOp, resolving type/op/action
// aliases and recursing into batch children. Returns false when no known op
// name is present.
func CoerceOp(obj map[string]any) (types.BoardOp, bool) {
	var typeName string
	for _, key := range typeAliasKeys {
		if s, ok := obj[key].(string); ok && s != "" {
			typeName = s
			break
		}
	}
	canonical, ok := canonicalOpNames[normalizeOpName(typeName)]
	if !ok {
		return types.BoardOp{}, false
	}

	clean := make(map[string]any, len(obj))
	for k, v := range obj {
		clean[k] = v
	}
	for _, key := range typeAliasKeys {
		delete(clean, key)
	}
	clean["type"] = canonical

	if canonical == types.OpBatch {
		var nested []types.BoardOp
		for _, item := range rawOpsList(obj) {
			child, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if op, ok := CoerceOp(child); ok {
				nested = append(nested, op)
				if len(nested) >= maxNestedBatch {
					break
				}
			}
		}
		for _, key := range opsAliasKeys {
			delete(clean, key)
		}
		raw, err := json.Marshal(clean)
		if err != nil {
			return types.BoardOp{}, false
		}
		var op types.BoardOp
		if err := json.Unmarshal(raw, &op); err != nil {
			return types.BoardOp{}, false
		}
		op.Ops = nested
		return op, true
	}

	raw, err := json.Marshal(clean)
	if err != nil {
		return types.BoardOp{}, false
	}
	var op types.BoardOp
	if err := json.Unmarshal(raw, &op); err != nil {
		return types.BoardOp{}, false
	}
	return op, true
}

// CoerceEnvelope interprets a parsed object as a board_ops envelope,
// tolerating alias keys for the op list.
func CoerceEnvelope(obj map[string]any) *Envelope {
	env := &Envelope{Kind: "board_ops", SchemaVersion: 1}
	if s, ok := obj["summary"].(string); ok {
		env.Summary = strings.TrimSpace(s)
	}
	if s, ok := obj["text"].(string); ok {
		env.Text = strings.TrimSpace(s)
	}
	if v, ok := obj["schemaVersion"].(float64); ok && int(v) > 1 {
		env.SchemaVersion = int(v)
	}

	for _, item := range rawOpsList(obj) {
		child, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if op, ok := CoerceOp(child); ok {
			env.Ops = append(env.Ops, op)
			if len(env.Ops) >= maxEnvelopeOps {
				break
			}
		}
	}

	// A bare op object with no wrapper still counts as a one-op envelope.
	if len(env.Ops) == 0 {
		if op, ok := CoerceOp(obj); ok {
			env.Ops = append(env.Ops, op)
		}
	}
	return env
}

// ParseEnvelope runs the strict path then the salvage path over raw provider
// text. Returns nil when nothing coercible was found.
func ParseEnvelope(raw string) *Envelope {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		env := CoerceEnvelope(obj)
		finishEnvelope(env)
		if len(env.Ops) > 0 || env.Text != "" {
			return env
		}
		return nil
	}

	if !looksLikeBoardOps(raw) {
		return nil
	}
	env := &Envelope{Kind: "board_ops", SchemaVersion: 1}
	seen := map[string]bool{}
	for _, candidate := range ParseLooseObjects(raw) {
		for _, fragment := range envelopeFragments(candidate) {
			op, ok := CoerceOp(fragment)
			if !ok {
				continue
			}
			key := canonicalOpKey(op)
			if seen[key] {
				continue
			}
			seen[key] = true
			env.Ops = append(env.Ops, op)
			if len(env.Ops) >= maxEnvelopeOps {
				break
			}
		}
	}
	fields := SalvageFields(raw)
	env.Summary = fields.Summary
	env.Text = fields.Text
	finishEnvelope(env)
	if len(env.Ops) == 0 {
		return nil
	}
	return env
}

// envelopeFragments yields the op-shaped maps inside a salvaged object: the
// object itself plus anything under an ops alias key.
func envelopeFragments(obj map[string]any) []map[string]any {
	out := []map[string]any{obj}
	for _, item := range rawOpsList(obj) {
		if child, ok := item.(map[string]any); ok {
			out = append(out, child)
		}
	}
	return out
}

func canonicalOpKey(op types.BoardOp) string {
	raw, err := json.Marshal(op)
	if err != nil {
		return ""
	}
	return string(raw)
}

// finishEnvelope synthesizes a text panel when the payload carried prose but
// no text element made it into the ops.
func finishEnvelope(env *Envelope) {
	if env.Text == "" || envelopeHasTextElement(env.Ops) {
		return
	}
	env.Ops = append(env.Ops, types.BoardOp{
		Type: types.OpUpsertElement,
		Element: &types.BoardElement{
			ID:   "text_panel",
			Kind: types.ElementText,
			X:    textPanelX,
			Y:    textPanelY,
			Text: env.Text,
			Style: map[string]any{
				"fontSize": float64(18),
				"maxWidth": textPanelWidth,
			},
		},
	})
}

func envelopeHasTextElement(ops []types.BoardOp) bool {
	for _, op := range ops {
		if op.Type == types.OpUpsertElement && op.Element != nil &&
			(op.Element.Kind == types.ElementText || op.Element.Kind == types.ElementSticky) {
			return true
		}
		if op.Type == types.OpBatch && envelopeHasTextElement(op.Ops) {
			return true
		}
	}
	return false
}
