package types

import (
	"time"

	"gorm.io/datatypes"
)

// PersonalProfile is the durable personalization record, keyed by the
// normalized lowercase participant name.
type PersonalProfile struct {
	NameKey      string         `gorm:"primaryKey;column:name_key" json:"nameKey"`
	DisplayName  string         `gorm:"column:display_name" json:"displayName"`
	ContextLines datatypes.JSON `gorm:"column:context_lines" json:"contextLines"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updatedAt"`
}

func (PersonalProfile) TableName() string {
	return "personal_profile"
}

// ProfileView is the JSON shape handed back over HTTP.
type ProfileView struct {
	NameKey      string    `json:"nameKey"`
	DisplayName  string    `json:"displayName"`
	ContextLines []string  `json:"contextLines"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
