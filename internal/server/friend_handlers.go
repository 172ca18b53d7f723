package server

import (
	"schoolmates/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/sendFriendRequest
// @Summary Send friend request
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{friend_id=int} true "Target user"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /sendFriendRequest [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		FriendID FlexID `json:"friend_id" validate:"gt=0"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	targetID := uint(req.FriendID)

	ctx := c.UserContext()
	if err := s.friendService.SendFriendRequest(ctx, userID, targetID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishFriendRequestReceived(ctx, userID, targetID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Friend request sent",
	})
}

// AcceptFriendRequest handles POST /api/acceptFriendRequest
// @Summary Accept friend request
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{requester_id=int} true "Requesting user"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /acceptFriendRequest [post]
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		RequesterID FlexID `json:"requester_id" validate:"gt=0"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	requesterID := uint(req.RequesterID)

	ctx := c.UserContext()
	if err := s.friendService.AcceptFriendRequest(ctx, userID, requesterID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishFriendRequestAccepted(ctx, userID, requesterID)

	return c.JSON(fiber.Map{
		"message": "Friend request accepted",
	})
}

// RejectFriendRequest handles POST /api/rejectFriendRequest
// @Summary Reject friend request
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{requester_id=int} true "Requesting user"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /rejectFriendRequest [post]
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		RequesterID FlexID `json:"requester_id" validate:"gt=0"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	if err := s.friendService.RejectFriendRequest(c.UserContext(), userID, uint(req.RequesterID)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Friend request rejected",
	})
}

// GetFriends handles GET /api/getFriends
// @Summary List friends
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Router /getFriends [get]
func (s *Server) GetFriends(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	friends, err := s.friendService.GetFriends(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(models.Summaries(friends))
}

// GetFriendRequests handles GET /api/getFriendRequests
// @Summary List pending friend requests
// @Description Users who sent the caller a request that is still pending
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Router /getFriendRequests [get]
func (s *Server) GetFriendRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requesters, err := s.friendService.GetFriendRequests(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(models.Summaries(requesters))
}

// GetOnlineFriends handles GET /api/onlineFriends
// @Summary List online friends
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Router /onlineFriends [get]
func (s *Server) GetOnlineFriends(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	friends, err := s.friendService.GetOnlineFriends(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(models.Summaries(friends))
}
