package server

import (
	"context"

	"schoolmates/internal/middleware"
	"schoolmates/internal/models"
	"schoolmates/internal/notifications"
	"schoolmates/internal/service"
)

func (s *Server) notifyUser(ctx context.Context, userID uint, ev notifications.Event) {
	if err := s.gateway.NotifyUser(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to notify user",
			"event_type", ev.Type, "target_id", userID, "error", err.Error())
	}
}

func (s *Server) publishConversation(ctx context.Context, convID uint, ev notifications.Event, exclude *notifications.Client) {
	if err := s.gateway.Publish(ctx, convID, ev, exclude); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish conversation event",
			"event_type", ev.Type, "conversation_id", convID, "error", err.Error())
	}
}

// userSummaryFor loads the compact user used in event payloads. Lookup
// failures fall back to the bare id so the event is still sent.
func (s *Server) userSummaryFor(ctx context.Context, userID uint) models.UserSummary {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.UserSummary{ID: userID}
	}
	return user.Summary()
}

func (s *Server) publishFriendRequestReceived(ctx context.Context, requesterID, targetID uint) {
	s.notifyUser(ctx, targetID, notifications.Event{
		Type: notifications.EventFriendRequestReceived,
		Payload: map[string]any{
			"from": s.userSummaryFor(ctx, requesterID),
		},
	})
}

func (s *Server) publishFriendRequestAccepted(ctx context.Context, accepterID, requesterID uint) {
	s.notifyUser(ctx, requesterID, notifications.Event{
		Type: notifications.EventFriendRequestAccepted,
		Payload: map[string]any{
			"friend": s.userSummaryFor(ctx, accepterID),
		},
	})
}

// publishNewMessage goes to every subscriber, the sender's connections included.
func (s *Server) publishNewMessage(ctx context.Context, msg *models.Message) {
	s.publishConversation(ctx, msg.ConversationID, notifications.Event{
		Type:    notifications.EventNewMessage,
		Payload: msg,
	}, nil)
}

func (s *Server) publishDeliveredUpdate(ctx context.Context, msg *models.Message, recipientID uint, exclude *notifications.Client) {
	s.publishConversation(ctx, msg.ConversationID, notifications.Event{
		Type: notifications.EventMessageDeliveredUpdate,
		Payload: map[string]any{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"user_id":         recipientID,
			"delivered_to":    []uint{recipientID},
		},
	}, exclude)
}

// publishReadUpdates sends one message_read_update per conversation that had
// newly read messages.
func (s *Server) publishReadUpdates(ctx context.Context, readerID uint, result *service.ReadResult, exclude *notifications.Client) {
	for convID, ids := range result.ByConversation {
		s.publishConversation(ctx, convID, notifications.Event{
			Type: notifications.EventMessageReadUpdate,
			Payload: map[string]any{
				"conversation_id": convID,
				"message_ids":     ids,
				"user_id":         readerID,
				"read_by":         []uint{readerID},
			},
		}, exclude)
	}
}

func (s *Server) publishTyping(ctx context.Context, convID, userID uint, isTyping bool, exclude *notifications.Client) {
	s.publishConversation(ctx, convID, notifications.Event{
		Type: notifications.EventTypingIndicator,
		Payload: map[string]any{
			"conversation_id": convID,
			"user_id":         userID,
			"is_typing":       isTyping,
		},
	}, exclude)
}
