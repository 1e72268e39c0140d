package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexcherry/audiocast/internal/domain"
)

// Client renders text to audio through a synthesis backend and stores the
// result under the artifacts directory. It implements domain.SpeechEngine.
//
// Artifacts below the voice size cap are kept as opus-in-ogg "voice" files;
// anything larger is re-rendered as mp3 and delivered as a "document".
type Client struct {
	baseURL       string
	artifactsDir  string
	voiceMaxBytes int64
	httpClient    *http.Client
}

// NewClient creates a new synthesis client and ensures the artifacts
// directory exists.
func NewClient(baseURL, artifactsDir string, voiceMaxBytes int64) (*Client, error) {
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		artifactsDir:  artifactsDir,
		voiceMaxBytes: voiceMaxBytes,
		httpClient:    &http.Client{},
	}, nil
}

type synthesizeRequest struct {
	Text    string  `json:"text"`
	ModelID string  `json:"model_id"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed"`
	Format  string  `json:"format"`
}

// Synthesize renders text with the selected model and voice. The artifact is
// written as <baseName>.ogg, or <baseName>.mp3 when the ogg rendering
// exceeds the voice size cap.
func (c *Client) Synthesize(ctx context.Context, text string, sel domain.SpeechSelection, baseName string) (*domain.ArtifactMeta, error) {
	oggPath := filepath.Join(c.artifactsDir, baseName+".ogg")
	size, err := c.render(ctx, text, sel, "ogg", oggPath)
	if err != nil {
		return nil, err
	}

	if size <= c.voiceMaxBytes {
		return &domain.ArtifactMeta{
			Path:      oggPath,
			Kind:      domain.ArtifactKindVoice,
			MimeType:  "audio/ogg",
			SizeBytes: size,
		}, nil
	}

	mp3Path := filepath.Join(c.artifactsDir, baseName+".mp3")
	size, err = c.render(ctx, text, sel, "mp3", mp3Path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(oggPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove oversized ogg artifact: %w", err)
	}

	return &domain.ArtifactMeta{
		Path:      mp3Path,
		Kind:      domain.ArtifactKindDocument,
		MimeType:  "audio/mpeg",
		SizeBytes: size,
	}, nil
}

// render requests one synthesis pass and streams the audio body to disk.
func (c *Client) render(ctx context.Context, text string, sel domain.SpeechSelection, format, outPath string) (int64, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: sel.ModelID,
		Voice:   sel.Voice,
		Speed:   sel.Speed,
		Format:  format,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("synthesize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("synthesize request returned status %d: %s", resp.StatusCode, string(detail))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create artifact file: %w", err)
	}

	size, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outPath) //nolint:errcheck
		return 0, fmt.Errorf("failed to write artifact file: %w", err)
	}
	if size == 0 {
		os.Remove(outPath) //nolint:errcheck
		return 0, fmt.Errorf("synthesis produced no audio")
	}

	return size, nil
}
