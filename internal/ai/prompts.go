package ai

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/logger"
)

// Prompts holds the template text the engine feeds to providers. Compiled-in
// defaults can be overridden by dropping files under prompts/.
type Prompts struct {
	System      string
	Delta       string
	VisualSkill string
	Personal    string
}

const defaultSystemPrompt = `You are the sketching engine behind a shared whiteboard. You receive a
snapshot of a room conversation and reply with ONE JSON object, no prose:
{"kind":"board_ops","schemaVersion":1,"summary":"...","text":"...","ops":[...]}

Each op is one of: clearBoard, upsertElement, appendStrokePoints,
deleteElement, offsetElement, setElementGeometry, setElementStyle,
setElementText, duplicateElement, setElementZIndex, alignElements,
distributeElements, setViewport, batch. Elements carry kind
(text|rect|ellipse|diamond|triangle|sticky|frame|stroke|line|arrow), x, y and
size fields. Keep coordinates within x in [-200,3800] and y in [-200,5600].

Priority order for the material you receive: correction directives first,
then high-priority pinned context, then normal pinned context, then the
transcript window, then the visual hint. Draw what the room is talking about
right now. Prefer a handful of labeled shapes with arrows over walls of text.`

const defaultDeltaPrompt = `The board already shows earlier sketches; they will be moved out of your way
automatically. Produce a fresh self-contained sketch for the newest material
only. Do not emit clearBoard.`

const defaultVisualSkillPrompt = `When the conversation describes structure, choose a layout on purpose:
hierarchies read top-down with the root centered; pipelines read left to
right with labeled arrows; loose topics become one headline block plus
supporting detail blocks. Label every shape you draw.`

const defaultPersonalPrompt = `You are sketching a private notes board for one participant. Reply with the
same board_ops JSON object. Favor bullet-forward sticky notes and short text
panels summarizing what matters to this participant, using their stored
context lines to decide emphasis. Keep it compact.`

// LoadPrompts returns the defaults overlaid with any files found in dir
// (system.txt, delta.txt, visual_skill.txt, personal.txt).
func LoadPrompts(dir string, log *logger.Logger) Prompts {
	p := Prompts{
		System:      defaultSystemPrompt,
		Delta:       defaultDeltaPrompt,
		VisualSkill: defaultVisualSkillPrompt,
		Personal:    defaultPersonalPrompt,
	}
	if dir == "" {
		return p
	}
	load := func(name string, dst *string) {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			*dst = text
			if log != nil {
				log.Info("Prompt override loaded", "file", name)
			}
		}
	}
	load("system.txt", &p.System)
	load("delta.txt", &p.Delta)
	load("visual_skill.txt", &p.VisualSkill)
	load("personal.txt", &p.Personal)
	return p
}
