package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/services"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type lineLoginRequest struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionResponse struct {
	User               models.User `json:"user"`
	Token              string      `json:"token"`
	MustChangePassword bool        `json:"mustChangePassword"`
}

func (handler *Handler) Signup(c *fiber.Ctx) error {
	var request signupRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	user, err := handler.authService.Signup(services.SignupInput{
		Email:       request.Email,
		Password:    request.Password,
		DisplayName: request.DisplayName,
		Role:        request.Role,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	token, err := handler.startSession(c, &user)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{User: user, Token: token})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	limiterKey := requestLimiterKey(c)
	if handler.loginLimiter.blocked(limiterKey, handler.now(), loginAttemptLimit, loginAttemptWindow) {
		return handler.apiError(c, fiber.StatusTooManyRequests, "too_many_attempts")
	}

	var request loginRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	user, err := handler.authService.Authenticate(request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.recordFailure(limiterKey, handler.now(), loginAttemptWindow)
		}
		return handler.respondServiceError(c, err)
	}
	handler.loginLimiter.reset(limiterKey)

	token, err := handler.startSession(c, &user)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(sessionResponse{User: user, Token: token, MustChangePassword: user.MustChangePassword})
}

func (handler *Handler) LineLogin(c *fiber.Ctx) error {
	var request lineLoginRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	user, created, err := handler.authService.LineLogin(c.UserContext(), services.LineLoginInput{
		IDToken:     request.IDToken,
		AccessToken: request.AccessToken,
		Role:        request.Role,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	token, err := handler.startSession(c, &user)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(sessionResponse{User: user, Token: token})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	if err := handler.authService.EndSession(currentSessionTokenID(c)); err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthenticated")
	}
	return c.JSON(fiber.Map{
		"userId":             user.ID,
		"role":               user.Role,
		"displayName":        user.DisplayName,
		"source":             currentIdentity(c).Source,
		"mustChangePassword": user.MustChangePassword,
	})
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthenticated")
	}

	var request changePasswordRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	if err := handler.authService.ChangePassword(user.ID, request.CurrentPassword, request.NewPassword); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
