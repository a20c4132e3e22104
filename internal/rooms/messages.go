package rooms

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/diagram"
	"github.com/yungbote/senseboard-backend/internal/types"
)

// ApplyResult tells the caller what a client message did to the room.
type ApplyResult struct {
	Changed bool
	// WakeAI marks mutations the AI engine should react to with a tick:
	// new chat/context/transcript content, visual hints, or an unfreeze.
	WakeAI bool
}

// ApplyClientMessage mutates room state for one inbound websocket message.
// The caller holds the room lock (Store.With). Transcript chunks go through
// Store.AddTranscript instead so per-speaker dedup applies.
func ApplyClientMessage(r *types.RoomState, sender types.Member, msg *types.ClientMessage, now time.Time) (ApplyResult, error) {
	switch msg.Type {
	case types.MsgChatAdd:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return ApplyResult{}, fmt.Errorf("chat:add requires text")
		}
		kind := ""
		if msg.Kind == "correction" {
			kind = "correction"
		}
		r.PushChat(types.ChatMessage{
			ID:        orNewID(msg.ID),
			Sender:    sender.Name,
			Text:      text,
			Kind:      kind,
			CreatedAt: now,
		})
		return ApplyResult{Changed: true, WakeAI: kind == "correction"}, nil

	case types.MsgContextAdd:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return ApplyResult{}, fmt.Errorf("context:add requires text")
		}
		item := types.ContextItem{
			ID:        orNewID(msg.ID),
			Text:      text,
			Priority:  normalizePriority(msg.Priority),
			CreatedBy: sender.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if msg.Pinned != nil {
			item.Pinned = *msg.Pinned
		}
		r.PushContext(item)
		return ApplyResult{Changed: true, WakeAI: true}, nil

	case types.MsgContextUpdate:
		for i := range r.ContextItems {
			if r.ContextItems[i].ID != msg.ID {
				continue
			}
			if text := strings.TrimSpace(msg.Text); text != "" {
				r.ContextItems[i].Text = text
			}
			if msg.Pinned != nil {
				r.ContextItems[i].Pinned = *msg.Pinned
			}
			if msg.Priority != "" {
				r.ContextItems[i].Priority = normalizePriority(msg.Priority)
			}
			r.ContextItems[i].UpdatedAt = now
			return ApplyResult{Changed: true, WakeAI: true}, nil
		}
		return ApplyResult{}, fmt.Errorf("context item %q not found", msg.ID)

	case types.MsgContextDelete:
		for i := range r.ContextItems {
			if r.ContextItems[i].ID == msg.ID {
				r.ContextItems = append(r.ContextItems[:i], r.ContextItems[i+1:]...)
				return ApplyResult{Changed: true, WakeAI: true}, nil
			}
		}
		return ApplyResult{}, fmt.Errorf("context item %q not found", msg.ID)

	case types.MsgVisualHintSet:
		r.VisualHint = strings.TrimSpace(msg.Value)
		return ApplyResult{Changed: true, WakeAI: r.VisualHint != ""}, nil

	case types.MsgAIConfigUpdate:
		res := ApplyResult{Changed: true}
		if msg.Frozen != nil {
			r.AIConfig.Frozen = *msg.Frozen
			if *msg.Frozen {
				r.AIConfig.Status = types.AIStatusFrozen
			} else if r.AIConfig.Status == types.AIStatusFrozen {
				r.AIConfig.Status = types.AIStatusIdle
				res.WakeAI = true
			}
		}
		if msg.FocusMode != nil {
			r.AIConfig.FocusMode = *msg.FocusMode
		}
		if msg.FocusBox != nil {
			box := *msg.FocusBox
			r.AIConfig.FocusBox = &box
		}
		return res, nil

	case types.MsgDiagramPin:
		if !diagram.PinCurrent(r) {
			return ApplyResult{}, fmt.Errorf("no active diagram group to pin")
		}
		return ApplyResult{Changed: true}, nil

	case types.MsgDiagramUndoAI:
		if !diagram.UndoAIPatch(r) {
			return ApplyResult{}, fmt.Errorf("nothing to undo")
		}
		return ApplyResult{Changed: true}, nil

	case types.MsgDiagramRestore:
		if diagram.RestoreArchived(r, msg.GroupID, now) == nil {
			return ApplyResult{}, fmt.Errorf("archived group %q not found", msg.GroupID)
		}
		return ApplyResult{Changed: true}, nil

	default:
		return ApplyResult{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// Apply routes a client message through the room lock, using AddTranscript
// for transcript chunks so consecutive duplicates from one speaker drop.
func (s *Store) Apply(roomID string, sender types.Member, msg *types.ClientMessage) (ApplyResult, error) {
	if msg.Type == types.MsgTranscriptAdd {
		source := msg.Source
		if source == "" {
			source = "manual"
		}
		added := s.AddTranscript(roomID, sender.Name, msg.Text, source)
		return ApplyResult{Changed: added, WakeAI: added}, nil
	}

	var (
		res ApplyResult
		err error
	)
	s.With(roomID, func(r *types.RoomState) {
		res, err = ApplyClientMessage(r, sender, msg, time.Now())
	})
	return res, err
}

func orNewID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.New().String()
}

func normalizePriority(p string) string {
	if strings.EqualFold(strings.TrimSpace(p), "high") {
		return "high"
	}
	return "normal"
}
