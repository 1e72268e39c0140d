package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexcherry/audiocast/internal/api/dto"
	"github.com/alexcherry/audiocast/internal/domain"
)

// CreateJob handles POST /v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid create job request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobID, err := h.service.CreateJob(c.Request.Context(), req.ChatID, req.URLs,
		domain.SpeechSelection{
			ModelID: req.Tts.ModelID,
			Voice:   req.Tts.Voice,
			Speed:   req.Tts.Speed,
		},
		domain.LmSelection{
			SummaryModelID:  req.Lm.SummaryModelID,
			FilenameModelID: req.Lm.FilenameModelID,
		},
	)
	if err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.CreateJobResponse{
		JobID:  jobID,
		Status: domain.JobStatusQueued,
	})
}

// GetJob handles GET /v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	items, err := h.store.GetJobItems(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job items", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	itemDTOs := make([]dto.JobItemDTO, len(items))
	for i, item := range items {
		itemDTO := dto.JobItemDTO{
			ItemID:   item.ID,
			URL:      item.URL,
			Status:   item.Status,
			Summary:  item.Summary,
			Filename: item.Filename,
			Error:    item.ErrorMessage,
		}

		if item.ArtifactPath != nil && *item.ArtifactPath != "" {
			artifact := &dto.ArtifactDTO{
				DownloadURL: fmt.Sprintf("/v1/jobs/%s/items/%s/artifact", jobID, item.ID),
			}
			if item.ArtifactKind != nil {
				artifact.Kind = *item.ArtifactKind
			}
			if item.MimeType != nil {
				artifact.MimeType = *item.MimeType
			}
			if item.SizeBytes != nil {
				artifact.SizeBytes = *item.SizeBytes
			}
			itemDTO.Artifact = artifact
		}

		itemDTOs[i] = itemDTO
	}

	c.JSON(http.StatusOK, dto.JobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		Items:        itemDTOs,
	})
}

// DownloadArtifact handles GET /v1/jobs/:job_id/items/:item_id/artifact
func (h *JobHandler) DownloadArtifact(c *gin.Context) {
	jobID := c.Param("job_id")
	itemID := c.Param("item_id")

	item, err := h.store.GetJobItem(c.Request.Context(), jobID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Error("Failed to get job item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get item"})
		return
	}

	if item.ArtifactPath == nil || *item.ArtifactPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artifact already acknowledged or missing"})
		return
	}

	path := *item.ArtifactPath
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artifact file not found"})
		return
	}

	downloadName := itemID
	if item.Filename != nil && *item.Filename != "" {
		downloadName = *item.Filename
	}
	c.FileAttachment(path, downloadName+filepath.Ext(path))
}

// GetJobEvents handles GET /v1/jobs/:job_id/events
func (h *JobHandler) GetJobEvents(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := h.store.GetJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job events"})
		return
	}

	events, err := h.store.GetEvents(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job events", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job events"})
		return
	}

	eventDTOs := make([]dto.JobEventDTO, len(events))
	for i, event := range events {
		eventDTOs[i] = dto.JobEventDTO{
			ItemID:    event.ItemID,
			Level:     event.Level,
			Message:   event.Message,
			CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "events": eventDTOs})
}

// AckSent handles POST /v1/jobs/:job_id/items/:item_id/ack-sent
func (h *JobHandler) AckSent(c *gin.Context) {
	jobID := c.Param("job_id")
	itemID := c.Param("item_id")

	err := h.service.AcknowledgeSent(c.Request.Context(), jobID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Error("Failed to acknowledge item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CancelJob handles POST /v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")

	err := h.service.CancelJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to cancel job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
