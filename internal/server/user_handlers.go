package server

import (
	"schoolmates/internal/models"
	"schoolmates/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profile
// @Summary Get own profile
// @Description Get the authenticated user's profile with memory counts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := s.userService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/profile
// @Summary Update profile
// @Description Update the provided profile fields; omitted fields are left unchanged
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,school=string,class=string,section=string,interests=[]string,bio=string,instagram_username=string,relationship_status=string,cover_photo=string,profile_pic=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Name               *string   `json:"name"`
		School             *string   `json:"school"`
		Class              *string   `json:"class"`
		Section            *string   `json:"section"`
		Interests          *TextList `json:"interests"`
		Bio                *string   `json:"bio"`
		InstagramUsername  *string   `json:"instagram_username"`
		RelationshipStatus *string   `json:"relationship_status" validate:"omitnil,relationship"`
		CoverPhoto         *string   `json:"cover_photo"`
		ProfilePic         *string   `json:"profile_pic"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:             userID,
		Name:               req.Name,
		School:             req.School,
		Class:              req.Class,
		Section:            req.Section,
		Interests:          (*[]string)(req.Interests),
		Bio:                req.Bio,
		InstagramUsername:  req.InstagramUsername,
		RelationshipStatus: req.RelationshipStatus,
		CoverPhoto:         req.CoverPhoto,
		ProfilePic:         req.ProfilePic,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// SetupProfile handles POST /api/profile
// @Summary Set up profile
// @Description Overwrite the optional profile attributes after signup
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{profile_pic=string,cover_photo=string,class=string,section=string,interests=[]string,instagram_username=string,bio=string,relationship_status=string} true "Profile setup"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /profile [post]
func (s *Server) SetupProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		ProfilePic         string   `json:"profile_pic"`
		CoverPhoto         string   `json:"cover_photo"`
		Class              string   `json:"class"`
		Section            string   `json:"section"`
		Interests          TextList `json:"interests"`
		InstagramUsername  string   `json:"instagram_username"`
		Bio                string   `json:"bio"`
		RelationshipStatus string   `json:"relationship_status" validate:"relationship"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	interests := []string(req.Interests)
	if interests == nil {
		interests = []string{}
	}

	user, err := s.userService.SetupProfile(c.UserContext(), service.SetupProfileInput{
		UserID:             userID,
		ProfilePic:         req.ProfilePic,
		CoverPhoto:         req.CoverPhoto,
		Class:              req.Class,
		Section:            req.Section,
		Interests:          interests,
		InstagramUsername:  req.InstagramUsername,
		Bio:                req.Bio,
		RelationshipStatus: req.RelationshipStatus,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetOtherProfile handles GET /api/otherProfile/:userId
// @Summary Get another user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} service.OtherProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /otherProfile/{userId} [get]
func (s *Server) GetOtherProfile(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetOtherProfile(c.UserContext(), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// GetUserDetails handles GET /api/userDetails/:userId
// @Summary Get a user summary
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /userDetails/{userId} [get]
func (s *Server) GetUserDetails(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user.Summary())
}

// SearchUsers handles GET /api/searchUsers
// @Summary Search users
// @Description Substring match on name, school, class and section with optional exact filters
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param query query string false "Search text"
// @Param school query string false "Exact school"
// @Param class query string false "Exact class"
// @Param section query string false "Exact section"
// @Param interests query string false "Comma separated interests, any of"
// @Success 200 {array} models.UserSummary
// @Router /searchUsers [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	users, err := s.userService.SearchUsers(c.UserContext(), service.SearchInput{
		SearcherID: userID,
		Query:      c.Query("query"),
		School:     c.Query("school"),
		Class:      c.Query("class"),
		Section:    c.Query("section"),
		Interests:  models.ParseStringList(c.Query("interests")),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// RecommendUsers handles GET /api/recommendUsers
// @Summary Recommend users
// @Description Classmates, then schoolmates, then users sharing an interest
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.Recommendation
// @Router /recommendUsers [get]
func (s *Server) RecommendUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	recs, err := s.userService.RecommendUsers(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(recs)
}
