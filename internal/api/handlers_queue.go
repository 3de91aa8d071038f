package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"stockmeta/internal/fileprep"
	"stockmeta/internal/queue"
)

const sniffLen = 512

func (s *Server) handleListItems(c echo.Context) error {
	return c.JSON(http.StatusOK, QueueListResponse{Items: FromQueueItems(s.ws.Items())})
}

// handleAddFiles queues multipart uploads sent under the "files" (or "file")
// field. Files the current upload mode rejects are dropped and counted.
func (s *Server) handleAddFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	headers := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		return NewBadRequestError("no files provided", nil)
	}
	files := make([]queue.File, 0, len(headers))
	for _, fh := range headers {
		file, err := readUpload(fh)
		if err != nil {
			return NewBadRequestError(fmt.Sprintf("read %s", fh.Filename), err)
		}
		files = append(files, file)
	}
	items, err := s.ws.AddFiles(files...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AddFilesResponse{
		Items:   FromQueueItems(items),
		Dropped: len(files) - len(items),
	})
}

func readUpload(fh *multipart.FileHeader) (queue.File, error) {
	src, err := fh.Open()
	if err != nil {
		return queue.File{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return queue.File{}, err
	}
	if fileprep.IsVector(fh.Filename) {
		return queue.NewMemoryFile(fh.Filename, "", data), nil
	}
	declared := fh.Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(declared, echo.MIMEOctetStream) {
		declared = ""
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return queue.NewMemoryFile(fh.Filename, fileprep.DetectMIMEType(fh.Filename, declared, head), data), nil
}

func (s *Server) handleAddPaths(c echo.Context) error {
	var req AddPathsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if len(req.Paths) == 0 {
		return NewBadRequestError("no paths provided", nil)
	}
	items, err := s.ws.AddPaths(req.Paths...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AddFilesResponse{Items: FromQueueItems(items)})
}

func (s *Server) handleRemove(c echo.Context) error {
	if err := s.ws.Remove(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleClear(c echo.Context) error {
	n, err := s.ws.Clear()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

func (s *Server) handleRetry(c echo.Context) error {
	if err := s.ws.Retry(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRetryFailed(c echo.Context) error {
	return c.JSON(http.StatusOK, CountResponse{Count: s.ws.RetryFailed()})
}

func (s *Server) handleCopy(c echo.Context) error {
	text, err := s.ws.CopyText(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CopyResponse{Text: text})
}

func (s *Server) handlePreview(c echo.Context) error {
	token := c.Param("token")
	mimeType, rc, err := s.ws.Previews().Open(fileprep.PreviewPrefix + token)
	if err != nil {
		return NewNotFoundError("preview", token)
	}
	defer rc.Close()
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Stream(http.StatusOK, mimeType, rc)
}
