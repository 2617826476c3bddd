package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/satriahrh/voice-assistant/domain"
	"github.com/satriahrh/voice-assistant/usecase"
	"github.com/satriahrh/voice-assistant/utils/log"
	"go.uber.org/zap"
)

func (h *Handler) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: "Email and password are required."})
	}

	_, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, StatusResponse{Message: "User registered successfully."})
	case errors.Is(err, usecase.ErrMissingCredentials):
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: "Email and password are required."})
	case errors.Is(err, domain.ErrUserExists):
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: "User already exists."})
	default:
		log.WithCtx(c.Request().Context()).Error("Register failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, StatusResponse{Message: "Internal server error."})
	}
}

func (h *Handler) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: "Email and password are required."})
	}

	token, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"token": token})
	case errors.Is(err, usecase.ErrMissingCredentials):
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: "Email and password are required."})
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, StatusResponse{Message: "Invalid email or password."})
	default:
		log.WithCtx(c.Request().Context()).Error("Login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, StatusResponse{Message: "Internal server error."})
	}
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter that browsers use for WebSocket upgrades.
func bearerToken(c echo.Context) (string, bool) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return "", false
		}
		return token, true
	}
	if token := c.QueryParam("token"); token != "" {
		return token, true
	}
	return "", false
}

func (h *Handler) authenticate(c echo.Context, token string) error {
	claims, err := h.auth.ParseToken(token)
	if err != nil {
		log.WithCtx(c.Request().Context()).Debug("JWT validation error", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	ctx := log.ContextWithUserID(c.Request().Context(), claims.UserID)
	c.SetRequest(c.Request().WithContext(ctx))
	return nil
}

// JWTMiddleware rejects requests without a valid token.
func (h *Handler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
		}
		if err := h.authenticate(c, token); err != nil {
			return err
		}
		return next(c)
	}
}

// OptionalJWT attaches the caller's identity when a valid token is present.
// Missing, expired or malformed tokens leave the request anonymous.
func (h *Handler) OptionalJWT(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if err := h.authenticate(c, token); err != nil {
				log.WithCtx(c.Request().Context()).Debug("Ignoring invalid token on optional route")
			}
		}
		return next(c)
	}
}

// RequestContext copies the request id set by echo's RequestID middleware
// into the request context so log.WithCtx picks it up.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		if id == "" {
			id = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		if id != "" {
			c.SetRequest(c.Request().WithContext(log.ContextWithRequestID(c.Request().Context(), id)))
		}
		return next(c)
	}
}
