package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/chatimport"
)

const (
	defaultMaxUploadBytes = 100 << 20
	// multipartOverhead leaves room for the form boundaries around the file
	multipartOverhead = 1 << 20
)

// UploadHandler imports chat history exported from other assistants
type UploadHandler struct {
	logger   *slog.Logger
	importer ChatImporter
	maxBytes int64
}

func NewUploadHandler(deps *Dependencies) *UploadHandler {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadHandler{logger: deps.Logger, importer: deps.ChatImporter, maxBytes: maxBytes}
}

// ImportConversations handles POST /api/v2/uploads/conversations?provider=gpt|claude.
// The export is sent as the multipart field "file".
func (h *UploadHandler) ImportConversations(c *gin.Context) {
	provider, err := chatimport.ParseProvider(c.Query("provider"))
	if err != nil {
		respondError(c, h.logger, err, "Invalid provider")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		badRequest(c, "File is required", err)
		return
	}
	if header.Size > h.maxBytes {
		h.tooLarge(c)
		return
	}

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".json" {
		badRequest(c, "Unsupported file extension", fmt.Errorf("extension %q is not allowed, only .json", ext))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error":   "Unsupported file type",
			"message": fmt.Sprintf("content type %q is not allowed, only application/json", contentType),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err, "Failed to read upload")
		return
	}
	defer file.Close()

	userID := CurrentUserID(c)
	h.logger.Info("Chat history upload received",
		slog.String("user_id", userID),
		slog.String("provider", string(provider)),
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size),
	)

	res, err := h.importer.Import(c.Request.Context(), userID, provider, file)
	if err != nil {
		respondError(c, h.logger, err, "Failed to import conversations")
		return
	}

	c.JSON(http.StatusCreated, dto.NewChatImportResponse(header.Filename, header.Size, res))
}

func (h *UploadHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":   "File too large",
		"message": fmt.Sprintf("max size is %d MB", h.maxBytes>>20),
	})
}
