package service

import (
	"context"
	"strings"

	"schoolmates/internal/models"
	"schoolmates/internal/observability"
	"schoolmates/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 4000

// ChatService provides chat and conversation business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo}
}

// CreateConversationInput is the input for creating a conversation.
type CreateConversationInput struct {
	UserID         uint
	ParticipantIDs []uint
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	UserID         uint
	ConversationID uint
	Content        string
}

// DeliveryResult reports a delivery receipt.
type DeliveryResult struct {
	Message *models.Message
	Added   bool
}

// ReadResult groups newly read message ids by conversation.
type ReadResult struct {
	UpdatedIDs     []uint
	ByConversation map[uint][]uint
}

// CreateConversation creates a conversation between the creator and the
// participants. The final set must hold at least two distinct users.
func (s *ChatService) CreateConversation(ctx context.Context, in CreateConversationInput) (*models.Conversation, error) {
	ids := make([]uint, 0, len(in.ParticipantIDs)+1)
	ids = append(ids, in.UserID)
	ids = append(ids, in.ParticipantIDs...)

	participants, err := s.userRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	requested := 0
	seen := map[uint]struct{}{}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			requested++
		}
	}
	if requested < 2 {
		return nil, models.NewValidationError("A conversation needs at least two participants")
	}
	if len(participants) != requested {
		return nil, models.NewValidationError("One or more participants do not exist")
	}

	conv := &models.Conversation{CreatedBy: in.UserID}
	if err := s.chatRepo.CreateConversation(ctx, conv, participants); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversations returns conversations for the user.
func (s *ChatService) GetConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.chatRepo.GetUserConversations(ctx, userID)
}

// EnsureParticipant fails with NotFound for a missing conversation and
// Forbidden when userID is not one of its participants.
func (s *ChatService) EnsureParticipant(ctx context.Context, convID, userID uint) error {
	ok, err := s.chatRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.chatRepo.GetConversation(ctx, convID); err != nil {
		return err
	}
	return models.NewForbiddenError("You are not a participant in this conversation")
}

// SendMessage appends a message with empty receipts.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (msg *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "ChatService.SendMessage",
		attribute.Int64("conversation.id", int64(in.ConversationID)))
	defer func() { observability.EndSpan(span, err) }()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, models.NewValidationError("Message is too long")
	}

	if err := s.EnsureParticipant(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	msg = &models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.UserID,
		Content:        content,
		DeliveredTo:    []models.MessageDelivery{},
		ReadBy:         []models.MessageRead{},
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if sender, err := s.userRepo.GetByID(ctx, in.UserID); err == nil {
		msg.Sender = sender
	}
	observability.MessagesPosted.Inc()
	return msg, nil
}

// GetMessages returns a page of history, oldest first, for a participant.
func (s *ChatService) GetMessages(ctx context.Context, convID, userID uint, limit, offset int) ([]models.Message, error) {
	if err := s.EnsureParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, convID, limit, offset)
}

// MarkDelivered records that recipientID received messageID. The sender's
// own message is never marked.
func (s *ChatService) MarkDelivered(ctx context.Context, messageID, recipientID uint) (*DeliveryResult, error) {
	msg, err := s.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	ok, err := s.chatRepo.IsParticipant(ctx, msg.ConversationID, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewForbiddenError("You are not a participant in this conversation")
	}

	if msg.SenderID == recipientID {
		return &DeliveryResult{Message: msg}, nil
	}

	added, err := s.chatRepo.AddDelivery(ctx, messageID, recipientID)
	if err != nil {
		return nil, err
	}
	if added {
		if msg, err = s.chatRepo.GetMessage(ctx, messageID); err != nil {
			return nil, err
		}
	}
	return &DeliveryResult{Message: msg, Added: added}, nil
}

// MarkRead adds readerID to the read receipts of each listed message the
// reader can see. Missing messages, messages in other conversations and the
// reader's own messages are skipped.
func (s *ChatService) MarkRead(ctx context.Context, messageIDs []uint, readerID uint) (*ReadResult, error) {
	result := &ReadResult{UpdatedIDs: []uint{}, ByConversation: map[uint][]uint{}}

	msgs, err := s.chatRepo.GetMessagesByIDs(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	allowed := map[uint]bool{}
	for _, msg := range msgs {
		if msg.SenderID == readerID {
			continue
		}
		ok, seen := allowed[msg.ConversationID]
		if !seen {
			if ok, err = s.chatRepo.IsParticipant(ctx, msg.ConversationID, readerID); err != nil {
				return nil, err
			}
			allowed[msg.ConversationID] = ok
		}
		if !ok {
			continue
		}

		added, err := s.chatRepo.AddRead(ctx, msg.ID, readerID)
		if err != nil {
			return nil, err
		}
		if added {
			result.UpdatedIDs = append(result.UpdatedIDs, msg.ID)
			result.ByConversation[msg.ConversationID] = append(result.ByConversation[msg.ConversationID], msg.ID)
		}
	}
	return result, nil
}
