package dto

// TtsSelectionRequest chooses the synthesis model, voice and speed for a job.
type TtsSelectionRequest struct {
	ModelID string  `json:"model_id" binding:"required"`
	Voice   string  `json:"voice" binding:"required"`
	Speed   float64 `json:"speed" binding:"required,gt=0"`
}

// LmSelectionRequest chooses the language models for summary and filename.
type LmSelectionRequest struct {
	SummaryModelID  string `json:"summary_model_id" binding:"required"`
	FilenameModelID string `json:"filename_model_id" binding:"required"`
}

type CreateJobRequest struct {
	ChatID string              `json:"chat_id" binding:"required"`
	URLs   []string            `json:"urls" binding:"required,min=1,dive,url"`
	Tts    TtsSelectionRequest `json:"tts" binding:"required"`
	Lm     LmSelectionRequest  `json:"lm" binding:"required"`
}

type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ArtifactDTO describes a downloadable audio artifact.
type ArtifactDTO struct {
	Kind        string `json:"kind"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
}

type JobItemDTO struct {
	ItemID   string       `json:"item_id"`
	URL      string       `json:"url"`
	Status   string       `json:"status"`
	Summary  *string      `json:"summary,omitempty"`
	Filename *string      `json:"filename,omitempty"`
	Artifact *ArtifactDTO `json:"artifact,omitempty"`
	Error    *string      `json:"error,omitempty"`
}

type JobStatusResponse struct {
	JobID        string       `json:"job_id"`
	Status       string       `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Items        []JobItemDTO `json:"items"`
}

// JobEventDTO is one audit trail entry of a job.
type JobEventDTO struct {
	ItemID    *string `json:"item_id,omitempty"`
	Level     string  `json:"level"`
	Message   string  `json:"message"`
	CreatedAt string  `json:"created_at"`
}

type ValidateModelRequest struct {
	ModelID string `json:"model_id" binding:"required"`
}

type ValidateModelResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
