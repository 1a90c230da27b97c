package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-concierge/internal/app"
	"hotel-concierge/internal/transport/http/response"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

var uploadFields = []string{"file", "pdf"}

type AdminHandler struct {
	adminService   *app.AdminService
	authService    *app.AuthService
	maxUploadBytes int64
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func NewAdminHandler(adminService *app.AdminService, authService *app.AuthService, maxUploadBytes int64) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		authService:    authService,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *AdminHandler) UploadPDF(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	fileHeader, err := formFile(c)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusBadRequest, "File too large")
			return
		}
		response.Error(c, http.StatusBadRequest, "No file")
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, "File too large")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	data, err := readFile(fileHeader)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Failed to read upload", err.Error())
		return
	}

	result, err := h.adminService.UploadKnowledge(c.Request.Context(), app.UploadInput{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "No file")
		case errors.Is(err, app.ErrKnowledgeExtract):
			response.ErrorWithDetails(c, http.StatusInternalServerError, "Failed to parse PDF", extractDetails(err))
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	response.OK(c, h.adminService.Stats())
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Missing password")
		return
	}

	result, err := h.authService.Login(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAuthDisabled):
			response.Error(c, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "Missing password")
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	response.OK(c, result)
}

func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	var firstErr error
	for _, field := range uploadFields {
		fh, err := c.FormFile(field)
		if err == nil {
			return fh, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
	}
	return nil, firstErr
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload failed: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func extractDetails(err error) string {
	var extractErr *app.ExtractError
	if errors.As(err, &extractErr) && extractErr.Err != nil {
		return extractErr.Err.Error()
	}
	return err.Error()
}
