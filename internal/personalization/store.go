package personalization

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/types"
)

// Store persists per-participant context lines keyed by normalized name.
type Store struct {
	log      *logger.Logger
	db       *gorm.DB
	maxLines int
}

func NewStore(db *gorm.DB, maxLines int, log *logger.Logger) *Store {
	if maxLines <= 0 {
		maxLines = 40
	}
	return &Store{
		log:      log.With("service", "PersonalizationStore"),
		db:       db,
		maxLines: maxLines,
	}
}

// NameKey lowercases and collapses a display name into the stable lookup key.
func NameKey(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, " ")
}

func decodeLines(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return []string{}
	}
	return lines
}

// GetProfile loads the profile for a display name, or nil when none exists.
func (s *Store) GetProfile(name string) (*types.ProfileView, error) {
	key := NameKey(name)
	if key == "" {
		return nil, fmt.Errorf("name required")
	}
	var profile types.PersonalProfile
	err := s.db.First(&profile, "name_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", key, err)
	}
	return &types.ProfileView{
		NameKey:      profile.NameKey,
		DisplayName:  profile.DisplayName,
		ContextLines: decodeLines(profile.ContextLines),
		UpdatedAt:    profile.UpdatedAt,
	}, nil
}

// AppendContext adds lines to the profile, creating it on first write and
// keeping only the most recent maxLines entries.
func (s *Store) AppendContext(name string, lines ...string) (*types.ProfileView, error) {
	key := NameKey(name)
	if key == "" {
		return nil, fmt.Errorf("name required")
	}
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			cleaned = append(cleaned, l)
		}
	}
	if len(cleaned) == 0 {
		return s.GetProfile(name)
	}

	var profile types.PersonalProfile
	err := s.db.First(&profile, "name_key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = types.PersonalProfile{NameKey: key, DisplayName: strings.TrimSpace(name)}
	case err != nil:
		return nil, fmt.Errorf("load profile %q: %w", key, err)
	}

	existing := decodeLines(profile.ContextLines)
	existing = append(existing, cleaned...)
	if len(existing) > s.maxLines {
		existing = existing[len(existing)-s.maxLines:]
	}
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	profile.ContextLines = datatypes.JSON(raw)
	profile.UpdatedAt = time.Now().UTC()
	if profile.DisplayName == "" {
		profile.DisplayName = strings.TrimSpace(name)
	}

	if err := s.db.Save(&profile).Error; err != nil {
		return nil, fmt.Errorf("save profile %q: %w", key, err)
	}
	s.log.Debug("Profile context appended", "nameKey", key, "lines", len(cleaned))

	return &types.ProfileView{
		NameKey:      profile.NameKey,
		DisplayName:  profile.DisplayName,
		ContextLines: existing,
		UpdatedAt:    profile.UpdatedAt,
	}, nil
}

// PromptLines returns the stored context lines for prompt assembly, empty
// when the participant has no profile.
func (s *Store) PromptLines(name string) []string {
	view, err := s.GetProfile(name)
	if err != nil || view == nil {
		return nil
	}
	return view.ContextLines
}
