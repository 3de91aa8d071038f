package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"stockmeta/internal/session"
)

func (s *Server) handleSession(c echo.Context) error {
	ctx := c.Request().Context()
	resp := SessionResponse{}
	user, err := s.ws.User(ctx)
	switch {
	case err == nil:
		resp.User = &user
	case errors.Is(err, session.ErrNoSession):
	default:
		return err
	}
	key, err := s.ws.APIKey(ctx)
	if err != nil {
		return err
	}
	resp.HasAPIKey = key != ""
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if _, err := s.ws.Login(c.Request().Context(), req.Email, req.Name, req.Password); err != nil {
		return err
	}
	return s.handleSession(c)
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.ws.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetKey(c echo.Context) error {
	var req APIKeyRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := s.ws.SetAPIKey(c.Request().Context(), req.APIKey); err != nil {
		return err
	}
	return s.handleSession(c)
}
