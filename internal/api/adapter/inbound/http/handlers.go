package http_handler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/queue"
	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/fiber/v2"
)

type deleteQueueRequest struct {
	FileID string `json:"fileId"`
}

type issueLinkRequest struct {
	FileID    string `json:"fileId"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	contentType := c.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Content-Type must be multipart/form-data")
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid Content-Type")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing boundary in Content-Type")
	}

	bodyStream := c.Context().RequestBodyStream()
	if bodyStream == nil {
		bodyStream = bytes.NewReader(c.Body())
	}
	mr := multipart.NewReader(bodyStream, boundary)

	var fileName string
	var src io.Reader
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.sendJSONError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read multipart: %v", err))
		}
		if part.FormName() == "file" && part.FileName() != "" {
			fileName = part.FileName()
			src = part
			break
		}
		_ = part.Close()
	}

	if src == nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing 'file' part")
	}

	res, err := s.files.UploadFile(c.Context(), fileName, src)
	if err != nil {
		return s.sendServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"fileId":    res.FileID,
		"messageId": res.MessageID,
		"fileName":  res.Record.FileName,
		"fileSize":  res.Record.FileSize,
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	refresh := c.QueryBool("refresh", false)

	records, err := s.files.ListFiles(c.Context(), refresh)
	if err != nil {
		return s.sendServiceError(c, err)
	}

	summary := domain.Summarize(records)
	return c.JSON(fiber.Map{
		"files":     records,
		"count":     summary.Count,
		"totalSize": summary.TotalSize,
	})
}

func (s *Server) handleMetadata(c *fiber.Ctx) error {
	fileID := c.Query("id")
	if fileID == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing 'id' query parameter")
	}

	rec, err := s.files.GetFileInfo(c.Context(), fileID)
	if err != nil {
		return s.sendServiceError(c, err)
	}
	return c.JSON(rec)
}

// handleDownload streams a file by id, or by share link when s is given.
func (s *Server) handleDownload(c *fiber.Ctx) error {
	fileID := c.Query("id")
	if shortID := c.Query("s"); shortID != "" {
		resolved, err := s.links.Resolve(c.Context(), shortID)
		if err != nil {
			return s.sendServiceError(c, err)
		}
		fileID = resolved
	}
	if fileID == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing 'id' or 's' query parameter")
	}

	rec, err := s.files.GetFileInfo(c.Context(), fileID)
	if err != nil {
		return s.sendServiceError(c, err)
	}

	contentType := rec.MimeType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(rec.FileName))

	if err := s.files.DownloadFile(c.Context(), fileID, c.Response().BodyWriter()); err != nil {
		c.Response().ResetBody()
		c.Response().Header.Del(fiber.HeaderContentDisposition)
		sdklogger.Errorw("Download failed", "file_id", fileID, "error", err.Error())
		return s.sendServiceError(c, err)
	}
	return nil
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	messageID, err := strconv.ParseInt(c.Query("message_id"), 10, 64)
	if err != nil || messageID <= 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing or invalid 'message_id' query parameter")
	}

	if err := s.files.DeleteFile(c.Context(), messageID); err != nil {
		return s.sendServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true, "messageId": messageID})
}

func (s *Server) handleEnqueueDelete(c *fiber.Ctx) error {
	var req deleteQueueRequest
	if err := c.BodyParser(&req); err != nil || req.FileID == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Body must be JSON with a 'fileId'")
	}

	rec, err := s.files.GetFileInfo(c.Context(), req.FileID)
	if err != nil {
		return s.sendServiceError(c, err)
	}

	taskID, err := s.deletes.AddTask(c.Context(), *rec, queue.Callbacks{
		OnSuccess: func(task domain.DeleteTask) {
			sdklogger.Infow("Queued delete finished", "task_id", task.ID, "file_id", task.FileID)
		},
		OnError: func(task domain.DeleteTask, err error) {
			sdklogger.Warnw("Queued delete abandoned", "task_id", task.ID, "file_id", task.FileID, "error", err.Error())
		},
	})
	if err != nil {
		return s.sendServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"taskId": taskID})
}

func (s *Server) handleDeleteQueue(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tasks":   s.deletes.Tasks(),
		"pending": s.deletes.Len(),
	})
}

func (s *Server) handleIssueLink(c *fiber.Ctx) error {
	var req issueLinkRequest
	if err := c.BodyParser(&req); err != nil || req.FileID == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Body must be JSON with a 'fileId'")
	}
	if req.ExpiresIn < 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "'expiresIn' must not be negative")
	}

	res, err := s.links.Issue(c.Context(), req.FileID, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		return s.sendServiceError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleNetwork(c *fiber.Ctx) error {
	return c.JSON(s.network.Status())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// contentDisposition quotes ASCII names and adds an RFC 5987 form for the rest.
func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, url.PathEscape(name))
}
