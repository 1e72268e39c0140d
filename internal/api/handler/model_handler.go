package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexcherry/audiocast/internal/api/dto"
	"github.com/alexcherry/audiocast/internal/tts"
)

// Health handles GET /health. The service is degraded when the article
// fetcher is not configured, since jobs cannot complete without it.
func (h *JobHandler) Health(c *gin.Context) {
	if err := h.store.Healthcheck(c.Request.Context()); err != nil {
		h.logger.Error("Store healthcheck failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}

	if !h.fetcherConfigured {
		c.JSON(http.StatusOK, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TtsModels handles GET /v1/tts/models
func (h *JobHandler) TtsModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": tts.ListModels()})
}

// LmModels handles GET /v1/lm/models
func (h *JobHandler) LmModels(c *gin.Context) {
	ids, err := h.lm.ListModels(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list language models", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list language models"})
		return
	}

	models := make([]gin.H, len(ids))
	for i, id := range ids {
		models[i] = gin.H{"id": id}
	}
	c.JSON(http.StatusOK, gin.H{"data": models})
}

// ValidateLmModel handles POST /v1/lm/models/validate
func (h *JobHandler) ValidateLmModel(c *gin.Context) {
	var req dto.ValidateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.lm.ValidateModel(c.Request.Context(), req.ModelID)
	if err != nil {
		h.logger.Error("Model validation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Model validation failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateModelResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
	})
}
