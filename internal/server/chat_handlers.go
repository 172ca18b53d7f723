package server

import (
	"schoolmates/internal/models"
	"schoolmates/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/conversations
// @Summary List conversations
// @Description Conversations the caller participates in, newest first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Conversation
// @Router /conversations [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	convs, err := s.chatService.GetConversations(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(convs)
}

// CreateConversation handles POST /api/conversations
// @Summary Create conversation
// @Description Create a conversation between the caller and the listed users
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{participant_ids=[]int} true "Participants"
// @Success 201 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Router /conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		ParticipantIDs IDList `json:"participant_ids"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	conv, err := s.chatService.CreateConversation(c.UserContext(), service.CreateConversationInput{
		UserID:         userID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// GetMessages handles GET /api/messages/:conversationId
// @Summary Get conversation messages
// @Description Message history, oldest first. Without limit the whole history from offset is returned.
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param conversationId path int true "Conversation ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{conversationId} [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, maxPaginationLimit)
	if c.Query("limit") == "" {
		page.Limit = 0
	}

	msgs, err := s.chatService.GetMessages(c.UserContext(), convID, userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/messages/:conversationId
// @Summary Send message
// @Description Append a message and push new_message to the conversation's live subscribers
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conversationId path int true "Conversation ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{conversationId} [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "conversationId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	msg, err := s.chatService.SendMessage(ctx, service.SendMessageInput{
		UserID:         userID,
		ConversationID: convID,
		Content:        req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishNewMessage(ctx, msg)

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkMessagesRead handles POST /api/messages/markAsRead
// @Summary Mark messages read
// @Description Add the caller to the read receipts of the listed messages
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{message_ids=[]int} true "Messages"
// @Success 200 {object} object{success=bool,updated_messages=[]int}
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/markAsRead [post]
func (s *Server) MarkMessagesRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		MessageIDs IDList `json:"message_ids" validate:"required,min=1"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	result, err := s.chatService.MarkRead(ctx, req.MessageIDs, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishReadUpdates(ctx, userID, result, nil)

	return c.JSON(fiber.Map{
		"success":          len(result.UpdatedIDs) > 0,
		"updated_messages": result.UpdatedIDs,
	})
}
