package server

import (
	"schoolmates/internal/models"
	"schoolmates/internal/service"

	"github.com/gofiber/fiber/v2"
)

type timelineEventRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Text      string `json:"text"`
	EventText string `json:"event_text"`
}

func (r timelineEventRequest) input() service.TimelineEventInput {
	text := r.Text
	if text == "" {
		text = r.EventText
	}
	return service.TimelineEventInput{Date: r.Date, Time: r.Time, Text: text}
}

// UploadMemory handles POST /api/uploadMemory
// @Summary Create memory
// @Description Create a memory, tagging friends and optionally seeding its timeline
// @Tags memories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,tagged_friends=[]int,timeline_events=[]object{date=string,time=string,text=string}} true "Memory"
// @Success 201 {object} models.Memory
// @Failure 400 {object} models.ErrorResponse
// @Router /uploadMemory [post]
func (s *Server) UploadMemory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title          string                 `json:"title"`
		TaggedFriends  IDList                 `json:"tagged_friends"`
		TimelineEvents []timelineEventRequest `json:"timeline_events"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	events := make([]service.TimelineEventInput, 0, len(req.TimelineEvents))
	for _, ev := range req.TimelineEvents {
		events = append(events, ev.input())
	}

	memory, err := s.memoryService.UploadMemory(c.UserContext(), service.UploadMemoryInput{
		AuthorID:        userID,
		Title:           req.Title,
		TaggedFriendIDs: req.TaggedFriends,
		TimelineEvents:  events,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(memory)
}

// AddMemoryPhoto handles POST /api/memory/:id/addPhoto
// @Summary Add photo to memory
// @Description Author and tagged friends may append photos
// @Tags memories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memory ID"
// @Param request body object{url=string} true "Photo"
// @Success 200 {object} models.Memory
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /memory/{id}/addPhoto [post]
func (s *Server) AddMemoryPhoto(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	memoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	memory, err := s.memoryService.AddPhoto(c.UserContext(), memoryID, userID, req.URL)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memory)
}

// AddMemoryTimelineEvent handles POST /api/memory/:id/addTimelineEvent
// @Summary Add timeline event
// @Tags memories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memory ID"
// @Param request body object{date=string,time=string,text=string} true "Timeline event"
// @Success 200 {object} models.Memory
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /memory/{id}/addTimelineEvent [post]
func (s *Server) AddMemoryTimelineEvent(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	memoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req timelineEventRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	memory, err := s.memoryService.AddTimelineEvent(c.UserContext(), memoryID, userID, req.input())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memory)
}

// ToggleMemoryLike handles POST /api/memory/:id/like
// @Summary Like or unlike memory
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memory ID"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /memory/{id}/like [post]
func (s *Server) ToggleMemoryLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	memoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.memoryService.ToggleLike(c.UserContext(), memoryID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// AddMemoryComment handles POST /api/memory/:id/comment
// @Summary Comment on memory
// @Tags memories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memory ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {array} models.MemoryComment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /memory/{id}/comment [post]
func (s *Server) AddMemoryComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	memoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	comments, err := s.memoryService.AddComment(c.UserContext(), memoryID, userID, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comments)
}

// GetMemory handles GET /api/memory/:id
// @Summary Get memory
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memory ID"
// @Success 200 {object} models.Memory
// @Failure 404 {object} models.ErrorResponse
// @Router /memory/{id} [get]
func (s *Server) GetMemory(c *fiber.Ctx) error {
	memoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	memory, err := s.memoryService.GetMemory(c.UserContext(), memoryID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memory)
}

// GetUserMemories handles GET /api/userMemories/:userId
// @Summary List a user's memories
// @Description Memories the user authored or is tagged in, newest first
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {array} models.Memory
// @Router /userMemories/{userId} [get]
func (s *Server) GetUserMemories(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	memories, err := s.memoryService.UserMemories(c.UserContext(), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memories)
}

// GetFriendsMemories handles GET /api/friendsMemories
// @Summary List friends' memories
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Memory
// @Router /friendsMemories [get]
func (s *Server) GetFriendsMemories(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	memories, err := s.memoryService.FriendsMemories(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memories)
}

// GetFeed handles GET /api/memories
// @Summary Memory feed
// @Description First page of the caller's feed
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Memory
// @Router /memories [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	return s.respondFeed(c, 0)
}

// GetMoreFeed handles GET /api/memories/more/:offset
// @Summary More of the memory feed
// @Tags memories
// @Produce json
// @Security BearerAuth
// @Param offset path int true "Feed offset"
// @Success 200 {array} models.Memory
// @Failure 400 {object} models.ErrorResponse
// @Router /memories/more/{offset} [get]
func (s *Server) GetMoreFeed(c *fiber.Ctx) error {
	offset, err := c.ParamsInt("offset")
	if err != nil || offset < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid offset"))
	}
	return s.respondFeed(c, offset)
}

func (s *Server) respondFeed(c *fiber.Ctx, offset int) error {
	userID := c.Locals("userID").(uint)

	memories, err := s.memoryService.Feed(c.UserContext(), userID, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(memories)
}
