package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookrag/internal/rag_service/rag/pipeline"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/rag_service/service"
	"bookrag/pkg/logger"
)

// ChatRequest is the body of POST /api/v1/chat. Retrieval defaults to
// enabled; "disabled" answers from the model alone.
type ChatRequest struct {
	Question  string                    `json:"question" binding:"required"`
	History   []schema.ConversationTurn `json:"history"`
	Retrieval string                    `json:"retrieval"`
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	log     *logger.Logger
	svc     *service.Service
	timeout time.Duration
}

// NewHandler creates the handler set. timeout bounds each request; a full
// catalog reindex is allowed ten times as long.
func NewHandler(log *logger.Logger, svc *service.Service, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{log: log, svc: svc, timeout: timeout}
}

func (h *Handler) requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}

// Chat handles POST /api/v1/chat.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	mode := pipeline.RetrievalEnabled
	if req.Retrieval == "disabled" {
		mode = pipeline.RetrievalDisabled
	}

	ctx, cancel := h.requestContext(c, h.timeout)
	defer cancel()

	answer, err := h.svc.Chat(ctx, req.Question, req.History, mode)
	if err != nil {
		h.log.Error(fmt.Sprintf("Chat request failed: %v", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "the assistant could not process the request"})
		return
	}
	c.JSON(http.StatusOK, answer)
}

// RebuildIndex handles POST /api/v1/index/rebuild.
func (h *Handler) RebuildIndex(c *gin.Context) {
	ctx, cancel := h.requestContext(c, 10*h.timeout)
	defer cancel()

	indexed, failed, err := h.svc.ReindexAll(ctx)
	if err != nil {
		h.log.Error(fmt.Sprintf("Full reindex failed: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reindex failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": indexed, "failed": failed})
}

// ReindexDocument handles POST /api/v1/index/documents/:id.
func (h *Handler) ReindexDocument(c *gin.Context) {
	documentID := c.Param("id")

	ctx, cancel := h.requestContext(c, h.timeout)
	defer cancel()

	chunks, err := h.svc.ReindexDocument(ctx, documentID)
	if err != nil {
		h.log.Error(fmt.Sprintf("Reindex of document %s failed: %v", documentID, err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reindex failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentId": documentID, "chunks": chunks})
}

// DeleteDocumentIndex handles DELETE /api/v1/index/documents/:id.
func (h *Handler) DeleteDocumentIndex(c *gin.Context) {
	documentID := c.Param("id")

	ctx, cancel := h.requestContext(c, h.timeout)
	defer cancel()

	if err := h.svc.DeleteDocumentIndex(ctx, documentID); err != nil {
		h.log.Error(fmt.Sprintf("Delete of document index %s failed: %v", documentID, err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearIndex handles DELETE /api/v1/index.
func (h *Handler) ClearIndex(c *gin.Context) {
	ctx, cancel := h.requestContext(c, h.timeout)
	defer cancel()

	if err := h.svc.ClearIndex(ctx); err != nil {
		h.log.Error(fmt.Sprintf("Clearing the index failed: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Usage handles GET /api/v1/usage.
func (h *Handler) Usage(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Usage())
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
