package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

func bindExport(c echo.Context) (ExportRequest, error) {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return req, NewBadRequestError("invalid JSON body", err)
	}
	return req, nil
}

func (s *Server) handleExportCSV(c echo.Context) error {
	req, err := bindExport(c)
	if err != nil {
		return err
	}
	path, err := s.ws.ExportCSV(req.Dir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ExportResponse{Paths: []string{path}})
}

func (s *Server) handleExportPrompts(c echo.Context) error {
	req, err := bindExport(c)
	if err != nil {
		return err
	}
	path, err := s.ws.ExportPrompts(req.Dir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ExportResponse{Paths: []string{path}})
}

// handleExportEPS writes one EPS when an id is given, otherwise every
// successful vector item.
func (s *Server) handleExportEPS(c echo.Context) error {
	req, err := bindExport(c)
	if err != nil {
		return err
	}
	if id := strings.TrimSpace(req.ID); id != "" {
		path, err := s.ws.ExportEPS(id, req.Dir)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, ExportResponse{Paths: []string{path}})
	}
	paths, err := s.ws.ExportAllEPS(req.Dir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ExportResponse{Paths: paths})
}
