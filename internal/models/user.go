// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Relationship statuses accepted on a profile. The empty string means unset.
const (
	RelationshipSingle         = "Single"
	RelationshipInRelationship = "In a relationship"
	RelationshipMarried        = "Married"
	RelationshipComplicated    = "Complicated"
)

// IsValidRelationshipStatus reports whether s is an accepted relationship status.
func IsValidRelationshipStatus(s string) bool {
	switch s {
	case "", RelationshipSingle, RelationshipInRelationship, RelationshipMarried, RelationshipComplicated:
		return true
	}
	return false
}

// User represents a student account.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Name               string     `gorm:"not null" json:"name"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	Password           string     `gorm:"not null" json:"-"`
	School             string     `gorm:"index" json:"school"`
	Class              string     `gorm:"column:class_name;index" json:"class"`
	Section            string     `json:"section"`
	Interests          StringList `gorm:"type:text" json:"interests"`
	Bio                string     `gorm:"type:text" json:"bio"`
	InstagramUsername  string     `json:"instagram_username"`
	RelationshipStatus string     `gorm:"type:varchar(32)" json:"relationship_status"`
	CoverPhoto         string     `json:"cover_photo"`
	ProfilePic         string     `json:"profile_pic"`
	Online             bool       `gorm:"default:false;index" json:"online"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UserSummary is the compact user shape embedded in lists and events.
type UserSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
	School     string `json:"school,omitempty"`
	Class      string `json:"class,omitempty"`
	Section    string `json:"section,omitempty"`
	Online     bool   `json:"online"`
}

// Summary returns the compact representation of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
		School:     u.School,
		Class:      u.Class,
		Section:    u.Section,
		Online:     u.Online,
	}
}

// Summaries maps users to their compact representation.
func Summaries(users []User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
