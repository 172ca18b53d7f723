package server

import (
	"schoolmates/internal/models"
	"schoolmates/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/signup
// @Summary User signup
// @Description Register a new student account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string,school=string,class=string,section=string,interests=[]string} true "Signup request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Name      string   `json:"name"`
		Email     string   `json:"email"`
		Password  string   `json:"password"`
		School    string   `json:"school"`
		Class     string   `json:"class"`
		Section   string   `json:"section"`
		Interests TextList `json:"interests"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		School:    req.School,
		Class:     req.Class,
		Section:   req.Section,
		Interests: req.Interests,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/login
// @Summary User login
// @Description Authenticate with email and password and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(result)
}
