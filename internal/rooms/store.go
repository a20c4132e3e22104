package rooms

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/types"
)

// Store owns every room for the process lifetime. Rooms are created on first
// reference and all reads/writes of one room are serialized behind its entry
// mutex.
type Store struct {
	log   *logger.Logger
	mu    sync.Mutex
	rooms map[string]*entry

	transcriptMu        sync.Mutex
	lastTranscriptBySpk map[string]string
}

type entry struct {
	mu    sync.Mutex
	state *types.RoomState
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:                 log.With("component", "RoomStore"),
		rooms:               make(map[string]*entry),
		lastTranscriptBySpk: make(map[string]string),
	}
}

// CanonicalID normalizes a room id to its uppercase canonical form.
func CanonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

const roomIDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewRoomID mints a fresh 6-character uppercase id.
func NewRoomID() string {
	raw := uuid.New()
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteByte(roomIDAlphabet[int(raw[i])%len(roomIDAlphabet)])
	}
	return sb.String()
}

func (s *Store) get(id string) *entry {
	id = CanonicalID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[id]
	if !ok {
		e = &entry{state: types.NewRoomState(id, time.Now())}
		s.rooms[id] = e
		s.log.Info("Room created", "roomId", id)
	}
	return e
}

// Create mints a room with a fresh id and returns it.
func (s *Store) Create() string {
	id := NewRoomID()
	s.get(id)
	return id
}

// With runs fn with exclusive access to the room state, creating the room on
// demand. The callback must not retain the state past its return.
func (s *Store) With(id string, fn func(*types.RoomState)) {
	e := s.get(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}

// Snapshot returns a deep copy of the room state safe to hand to broadcasts
// and handlers outside the room lock.
func (s *Store) Snapshot(id string) *types.RoomState {
	var copied *types.RoomState
	s.With(id, func(r *types.RoomState) {
		raw, err := json.Marshal(r)
		if err != nil {
			s.log.Error("Room snapshot marshal failed", "roomId", r.ID, "error", err)
			return
		}
		var out types.RoomState
		if err := json.Unmarshal(raw, &out); err != nil {
			s.log.Error("Room snapshot unmarshal failed", "roomId", r.ID, "error", err)
			return
		}
		copied = &out
	})
	return copied
}

// Join appends a member to the room, reusing the member when the same name
// already joined.
func (s *Store) Join(id, name string) types.Member {
	var member types.Member
	s.With(id, func(r *types.RoomState) {
		for _, m := range r.Members {
			if strings.EqualFold(m.Name, name) {
				member = m
				return
			}
		}
		member = types.Member{
			ID:       uuid.New().String(),
			Name:     name,
			JoinedAt: time.Now(),
		}
		r.Members = append(r.Members, member)
	})
	return member
}

// AddTranscript appends a chunk after normalization and per-speaker
// consecutive dedup. Returns false when the chunk was dropped.
func (s *Store) AddTranscript(id, speaker, text, source string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	key := CanonicalID(id) + "|" + strings.ToLower(strings.TrimSpace(speaker))
	s.transcriptMu.Lock()
	if s.lastTranscriptBySpk[key] == text {
		s.transcriptMu.Unlock()
		return false
	}
	s.lastTranscriptBySpk[key] = text
	s.transcriptMu.Unlock()

	s.With(id, func(r *types.RoomState) {
		r.PushTranscript(types.TranscriptChunk{
			ID:        uuid.New().String(),
			Speaker:   speaker,
			Text:      text,
			Source:    source,
			CreatedAt: time.Now(),
		})
	})
	return true
}
