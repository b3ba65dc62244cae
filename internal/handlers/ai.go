package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/services"
)

// AIHandler serves the optional model-backed suggestion endpoints. The
// service is nil when OLLAMA_URL is not configured.
type AIHandler struct {
	aiService *services.AIService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(aiService *services.AIService) *AIHandler {
	return &AIHandler{
		aiService: aiService,
	}
}

// Health reports whether the local model server is reachable.
func (h *AIHandler) Health(c *gin.Context) {
	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Set OLLAMA_URL to enable it.")
		return
	}

	models, err := h.aiService.Health(c.Request.Context())
	if err != nil {
		apierrors.ServiceUnavailable(c, "Model server is not reachable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "available",
		"models": models,
	})
}

// Chat interprets a free-form message and returns the model's structured
// reply. Mutations come back as proposals; nothing is executed here.
func (h *AIHandler) Chat(c *gin.Context) {
	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Set OLLAMA_URL to enable it.")
		return
	}

	type ChatRequest struct {
		Message string `json:"message" binding:"required"`
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	reply, err := h.aiService.Chat(c.Request.Context(), req.Message)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to process chat message")
		return
	}

	c.JSON(http.StatusOK, reply)
}

// Suggest extracts task drafts from free-form text. Nothing is persisted;
// the client creates tasks from the drafts explicitly.
func (h *AIHandler) Suggest(c *gin.Context) {
	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Set OLLAMA_URL to enable it.")
		return
	}

	type SuggestRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.aiService.SuggestTasks(c.Request.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAINoTasksSuggested),
			errors.Is(err, services.ErrAITooManyTasks):
			apierrors.BadRequest(c, err.Error())
		default:
			apierrors.ServiceUnavailable(c, "Failed to generate suggestions")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
	})
}
