package server

import (
	"context"
	"encoding/json"

	"schoolmates/internal/middleware"
	"schoolmates/internal/models"
	"schoolmates/internal/notifications"
	"schoolmates/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type conversationPayload struct {
	ConversationID FlexID `json:"conversation_id"`
}

type deliveredPayload struct {
	MessageID FlexID `json:"message_id"`
}

type readPayload struct {
	ConversationID FlexID `json:"conversation_id"`
	MessageIDs     IDList `json:"message_ids"`
}

type typingPayload struct {
	ConversationID FlexID `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// WebsocketUpgrade rejects plain HTTP requests to the realtime endpoint.
func (s *Server) WebsocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebsocketHandler handles GET /api/ws
// @Summary Realtime channel
// @Description Upgrades to a websocket carrying {type, payload} frames
// @Tags realtime
// @Param token query string false "Session token"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}

		client := notifications.NewClient(conn, userID)
		s.connectClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) realtimeContext(userID uint) context.Context {
	ctx := s.shutdownCtx
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.WithUserID(ctx, userID)
}

// connectClient takes the presence slot for the client's user and wires its
// frame handling. A superseded connection stays open with its topics but no
// longer owns the slot.
func (s *Server) connectClient(client *notifications.Client) {
	ctx := s.realtimeContext(client.UserID)

	client.Handle = s.handleRealtimeFrame
	client.OnActivity = func(c *notifications.Client) {
		s.presence.Touch(ctx, c.UserID)
	}
	client.OnClose = s.disconnectClient

	if prev := s.presence.Register(ctx, client); prev != nil {
		middleware.Logger.InfoContext(ctx, "websocket connection superseded",
			"previous_conn_id", prev.ID, "conn_id", client.ID)
	}
	if err := s.userRepo.SetOnline(ctx, client.UserID, true); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to mark user online", "error", err.Error())
	}
	observability.WebSocketConnections.Inc()

	middleware.Logger.InfoContext(ctx, "websocket connected", "conn_id", client.ID)
	client.SendEvent(notifications.Event{
		Type: notifications.EventConnected,
		Payload: map[string]any{
			"user_id": client.UserID,
			"conn_id": client.ID,
		},
	})
}

// disconnectClient drops the client's topics and, when it still owns the
// presence slot, marks the user offline.
func (s *Server) disconnectClient(client *notifications.Client) {
	ctx := s.realtimeContext(client.UserID)

	s.gateway.LeaveAll(client)
	observability.WebSocketConnections.Dec()

	if s.presence.Unregister(ctx, client) {
		if err := s.userRepo.SetOnline(ctx, client.UserID, false); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to mark user offline", "error", err.Error())
		}
	}
	middleware.Logger.InfoContext(ctx, "websocket disconnected", "conn_id", client.ID)
}

// handleRealtimeFrame dispatches one inbound frame. Failures are reported to
// the sending connection as error events.
func (s *Server) handleRealtimeFrame(client *notifications.Client, raw []byte) {
	ctx := s.realtimeContext(client.UserID)

	var in notifications.InboundEvent
	if err := json.Unmarshal(raw, &in); err != nil || in.Type == "" {
		client.SendEvent(notifications.ErrorEvent("Invalid message format"))
		return
	}
	observability.WebSocketEvents.WithLabelValues("in", in.Type).Inc()

	var err error
	switch in.Type {
	case notifications.EventJoinConversation:
		err = s.handleJoin(ctx, client, in.Payload)
	case notifications.EventLeaveConversation:
		err = s.handleLeave(client, in.Payload)
	case notifications.EventMessageDelivered:
		err = s.handleDelivered(ctx, client, in.Payload)
	case notifications.EventMessagesRead:
		err = s.handleRead(ctx, client, in.Payload)
	case notifications.EventTypingIndicator:
		err = s.handleTyping(ctx, client, in.Payload)
	default:
		err = models.NewValidationError("Unknown event type: " + in.Type)
	}

	if err != nil {
		if models.ErrorCode(err) == models.CodeInternal {
			middleware.Logger.ErrorContext(ctx, "realtime event failed",
				"event_type", in.Type, "conn_id", client.ID, "error", err.Error())
		}
		client.SendEvent(notifications.ErrorEvent(clientMessage(err)))
	}
}

// clientMessage hides internal causes from the client.
func clientMessage(err error) string {
	if models.ErrorCode(err) == models.CodeInternal {
		return "Internal server error"
	}
	return err.Error()
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return models.NewValidationError("Missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return models.NewValidationError("Invalid payload")
	}
	return nil
}

func (s *Server) handleJoin(ctx context.Context, client *notifications.Client, raw json.RawMessage) error {
	var p conversationPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	convID := uint(p.ConversationID)
	if convID == 0 {
		return models.NewValidationError("conversation_id is required")
	}

	if err := s.chatService.EnsureParticipant(ctx, convID, client.UserID); err != nil {
		return err
	}
	s.gateway.Join(convID, client)

	client.SendEvent(notifications.Event{
		Type:    notifications.EventJoined,
		Payload: map[string]any{"conversation_id": convID},
	})
	return nil
}

func (s *Server) handleLeave(client *notifications.Client, raw json.RawMessage) error {
	var p conversationPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	convID := uint(p.ConversationID)

	s.gateway.Leave(convID, client)
	client.SendEvent(notifications.Event{
		Type:    notifications.EventLeft,
		Payload: map[string]any{"conversation_id": convID},
	})
	return nil
}

func (s *Server) handleDelivered(ctx context.Context, client *notifications.Client, raw json.RawMessage) error {
	var p deliveredPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if p.MessageID == 0 {
		return models.NewValidationError("message_id is required")
	}

	result, err := s.chatService.MarkDelivered(ctx, uint(p.MessageID), client.UserID)
	if err != nil {
		return err
	}
	if result.Added {
		s.publishDeliveredUpdate(ctx, result.Message, client.UserID, client)
	}
	return nil
}

func (s *Server) handleRead(ctx context.Context, client *notifications.Client, raw json.RawMessage) error {
	var p readPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if len(p.MessageIDs) == 0 {
		return models.NewValidationError("message_ids is required")
	}

	result, err := s.chatService.MarkRead(ctx, p.MessageIDs, client.UserID)
	if err != nil {
		return err
	}
	s.publishReadUpdates(ctx, client.UserID, result, client)
	return nil
}

// handleTyping relays to the topic only when this connection has joined it.
func (s *Server) handleTyping(ctx context.Context, client *notifications.Client, raw json.RawMessage) error {
	var p typingPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	convID := uint(p.ConversationID)
	if !s.gateway.IsSubscribed(convID, client) {
		return nil
	}
	s.publishTyping(ctx, convID, client.UserID, p.IsTyping, client)
	return nil
}
