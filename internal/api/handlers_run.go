package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/upload"
)

const mimeMsgpack = "application/msgpack"

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, FromState(s.ws.State(c.Request().Context())))
}

// handleSnapshot returns the full view as JSON, or msgpack when asked for via
// ?format=msgpack or the Accept header.
func (s *Server) handleSnapshot(c echo.Context) error {
	snap := BuildSnapshot(c.Request().Context(), s.ws, s.ws.Store().Snapshot())
	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}
	return c.JSON(http.StatusOK, snap)
}

func wantsMsgpack(c echo.Context) bool {
	if strings.EqualFold(c.QueryParam("format"), "msgpack") {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, mimeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

func (s *Server) handlePlatforms(c echo.Context) error {
	return c.JSON(http.StatusOK, Platforms())
}

func (s *Server) handleStart(c echo.Context) error {
	run, err := s.ws.Start(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, RunResponse{RunID: run.ID, Items: len(run.Items())})
}

func (s *Server) handlePause(c echo.Context) error {
	if err := s.ws.Pause(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleResume(c echo.Context) error {
	if err := s.ws.Resume(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStop(c echo.Context) error {
	if err := s.ws.Stop(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSettings(c echo.Context) error {
	var settings metadata.Settings
	if err := c.Bind(&settings); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := s.ws.UpdateSettings(settings); err != nil {
		return NewBadRequestError("invalid settings", err)
	}
	return s.handleState(c)
}

func (s *Server) handlePlatform(c echo.Context) error {
	var req PlatformRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	p, err := platform.Parse(req.Platform)
	if err != nil {
		return NewBadRequestError("unknown platform", err)
	}
	s.ws.SetPlatform(p)
	return s.handleState(c)
}

func (s *Server) handleMode(c echo.Context) error {
	var req ModeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if strings.TrimSpace(req.UploadMode) != "" {
		m, err := upload.ParseMode(req.UploadMode)
		if err != nil {
			return NewBadRequestError("unknown upload mode", err)
		}
		s.ws.SetUploadMode(m)
	}
	if strings.TrimSpace(req.Mode) != "" {
		m, err := metadata.ParseMode(req.Mode)
		if err != nil {
			return NewBadRequestError("unknown mode", err)
		}
		if m != s.ws.State(c.Request().Context()).Mode {
			if err := s.ws.SetMode(m); err != nil {
				return err
			}
		}
	}
	return s.handleState(c)
}
