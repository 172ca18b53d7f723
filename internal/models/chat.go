package models

import (
	"time"
)

// Conversation is a fixed set of participants sharing an ordered message history.
type Conversation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedBy    uint      `gorm:"index" json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Participants []User    `gorm:"many2many:conversation_participants;" json:"participants,omitempty"`
}

// HasParticipant reports whether userID is one of the loaded participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is the join table backing Conversation.Participants.
type ConversationParticipant struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// Message belongs to exactly one conversation. Receipts only ever hold recipients.
type Message struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	ConversationID uint              `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uint              `gorm:"not null;index" json:"sender_id"`
	Sender         *User             `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content        string            `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time         `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
	DeliveredTo    []MessageDelivery `gorm:"foreignKey:MessageID" json:"delivered_to"`
	ReadBy         []MessageRead     `gorm:"foreignKey:MessageID" json:"read_by"`
}

// MessageDelivery records that a recipient's client received a message.
type MessageDelivery struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"delivered_at"`
}

// MessageRead records that a recipient read a message.
type MessageRead struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"read_at"`
}

// IsDeliveredTo reports whether userID appears in the delivery receipts.
func (m *Message) IsDeliveredTo(userID uint) bool {
	for _, d := range m.DeliveredTo {
		if d.UserID == userID {
			return true
		}
	}
	return false
}

// IsReadBy reports whether userID appears in the read receipts.
func (m *Message) IsReadBy(userID uint) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
