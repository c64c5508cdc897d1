package documents

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docsum-backend/internal/extract"
	"docsum-backend/internal/shared/server/middleware"
	"docsum-backend/internal/shared/server/respond"
)

// multipartOverhead is allowed on top of the file limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents/:id/analyze", h.analyze)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/url", h.downloadURL)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/documents", h.list)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxUploadBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", ErrTooLarge.Error(), gin.H{"maxBytes": h.Svc.maxUploadBytes()})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", ErrNoFile.Error(), nil)
		return
	}

	data, err := readPart(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Data:     data,
		MimeType: declaredMimeType(fileHeader),
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// declaredMimeType prefers the part's Content-Type and falls back to the extension.
func declaredMimeType(fh *multipart.FileHeader) string {
	mimeType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if mimeType == "" || strings.EqualFold(mimeType, "application/octet-stream") {
		if guessed := extract.MimeTypeFromFileName(fh.Filename); guessed != "" {
			return guessed
		}
	}
	return mimeType
}

func (h *Handler) analyze(c *gin.Context) {
	id := c.Param("id")

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if err := h.Svc.EnqueueAnalysis(c.Request.Context(), id, middleware.RequestIDFromContext(c)); err != nil {
			h.writeError(c, err)
			return
		}
		respond.JSON(c, http.StatusAccepted, QueuedResponse{DocumentID: id, Status: "queued"})
		return
	}

	result, err := h.Svc.Analyze(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toAnalysisResponse(result))
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) downloadURL(c *gin.Context) {
	link, err := h.Svc.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, DownloadURLResponse{
		DocumentID: link.DocumentID,
		URL:        link.URL,
		ExpiresAt:  link.ExpiresAt,
	})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	if v := c.Query("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be an integer", nil)
			return
		}
		offset = parsed
	}
	limit, offset = NormalizePage(limit, offset)

	docs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := ListResponse{
		Documents: make([]DocumentResponse, 0, len(docs)),
		Limit:     limit,
		Offset:    offset,
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toResponse(doc))
	}
	respond.OK(c, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var extractErr *extract.ExtractionError
	switch {
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrNoText):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), nil)
	case errors.As(err, &extractErr):
		respond.Error(c, http.StatusBadRequest, "extraction_failed", "failed to extract text: "+extractErr.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrQueueUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", err.Error(), nil)
	case errors.Is(err, ErrAnalysisFailed):
		respond.Error(c, http.StatusBadGateway, "analysis_failed", "failed to analyze document", nil)
	default:
		_ = c.Error(err)
		respond.Error(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
