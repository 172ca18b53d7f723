package repository

import (
	"context"
	"errors"
	"time"

	"schoolmates/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []uint) error
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	GetUserConversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []uint) ([]models.Message, error)
	GetMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error)
	AddDelivery(ctx context.Context, msgID, userID uint) (bool, error)
	AddRead(ctx context.Context, msgID, userID uint) (bool, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateConversation stores conv and its participant rows atomically and
// loads conv.Participants.
func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}
		rows := make([]models.ConversationParticipant, 0, len(participantIDs))
		for _, id := range participantIDs {
			rows = append(rows, models.ConversationParticipant{ConversationID: conv.ID, UserID: id})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	if err := r.db.WithContext(ctx).Where("id IN ?", participantIDs).Order("id ASC").Find(&conv.Participants).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("users.id ASC") }).
		First(&conv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

// GetUserConversations returns userID's conversations, most recently active first.
func (r *chatRepository) GetUserConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	conversations := []models.Conversation{}
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.user_id = ?", userID).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("users.id ASC") }).
		Order("conversations.updated_at DESC, conversations.id DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// CreateMessage appends msg and bumps the conversation's activity time.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func withReceipts(db *gorm.DB) *gorm.DB {
	byTime := func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }
	return db.Preload("Sender").Preload("DeliveredTo", byTime).Preload("ReadBy", byTime)
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := withReceipts(r.db.WithContext(ctx)).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// GetMessagesByIDs returns the messages that exist among ids; missing ids are skipped.
func (r *chatRepository) GetMessagesByIDs(ctx context.Context, ids []uint) ([]models.Message, error) {
	messages := []models.Message{}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return messages, nil
	}
	if err := withReceipts(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// GetMessages returns the conversation's history ordered created_at ASC,
// id ASC. Offset counts forward from the oldest message; limit <= 0 returns
// everything from offset on.
func (r *chatRepository) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error) {
	messages := []models.Message{}
	q := withReceipts(r.db.WithContext(ctx)).
		Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// AddDelivery records a delivery receipt and reports whether it was new.
func (r *chatRepository) AddDelivery(ctx context.Context, msgID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MessageDelivery{MessageID: msgID, UserID: userID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AddRead records a read receipt and reports whether it was new.
func (r *chatRepository) AddRead(ctx context.Context, msgID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MessageRead{MessageID: msgID, UserID: userID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
