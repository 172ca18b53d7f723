package models

import (
	"time"
)

// Memory is a user-authored photo board that tagged friends may extend.
type Memory struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"not null" json:"title"`
	AuthorID       uint            `gorm:"not null;index" json:"author_id"`
	Author         *User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	TaggedFriends  []User          `gorm:"many2many:memory_tags;" json:"tagged_friends"`
	Photos         []MemoryPhoto   `gorm:"foreignKey:MemoryID" json:"photos"`
	TimelineEvents []TimelineEvent `gorm:"foreignKey:MemoryID" json:"timeline_events"`
	Likes          []User          `gorm:"many2many:memory_likes;" json:"likes"`
	Comments       []MemoryComment `gorm:"foreignKey:MemoryID" json:"comments"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CanEdit reports whether userID may append photos or timeline events.
// TaggedFriends must be loaded.
func (m *Memory) CanEdit(userID uint) bool {
	if m.AuthorID == userID {
		return true
	}
	for _, u := range m.TaggedFriends {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// MemoryTag is the join table backing Memory.TaggedFriends.
type MemoryTag struct {
	MemoryID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID   uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// MemoryLike is the join table backing Memory.Likes.
type MemoryLike struct {
	MemoryID  uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// MemoryPhoto is a photo URL appended to a memory. Order is insertion order.
type MemoryPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemoryID  uint      `gorm:"not null;index" json:"memory_id"`
	URL       string    `gorm:"not null" json:"url"`
	AddedBy   uint      `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEvent is a dated entry on a memory's timeline.
type TimelineEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemoryID  uint      `gorm:"not null;index" json:"memory_id"`
	Date      time.Time `json:"date"`
	Time      string    `gorm:"type:varchar(16)" json:"time"`
	EventText string    `gorm:"type:text;not null" json:"event_text"`
	AddedBy   uint      `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryComment is a comment left on a memory.
type MemoryComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemoryID  uint      `gorm:"not null;index" json:"memory_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
