// Package integrations fronts the AI and file services the workflows call out to.
package integrations

import (
	"context"
	"encoding/json"

	"medconnect-server/internal/models"
)

// Purpose values for InvokeLLM.
const (
	PurposeSymptomAssessment = "symptom_assessment"
	PurposeRecordSummary     = "record_summary"
)

// LLMRequest is a single prompt. ResponseSchema, when set, describes the
// JSON object the caller expects back.
type LLMRequest struct {
	Purpose        string
	Prompt         string
	ResponseSchema json.RawMessage
}

// FileUpload is an incoming file.
type FileUpload struct {
	OwnerID     string
	FileName    string
	ContentType string
	Data        []byte
}

// UploadedFile is the stored result of an upload.
type UploadedFile struct {
	ID          string `json:"id"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Integrations is implemented by the mock and by any real provider.
type Integrations interface {
	InvokeLLM(ctx context.Context, req LLMRequest) (json.RawMessage, error)
	QueryAI(ctx context.Context, question string) (string, error)
	UploadFile(ctx context.Context, file FileUpload) (*UploadedFile, error)
	ExtractDataFromUploadedFile(ctx context.Context, fileID string) (map[string]interface{}, error)
}

// FileStore persists uploaded blobs.
type FileStore interface {
	CreateFile(ctx context.Context, f *models.StoredFile) error
	GetFile(ctx context.Context, id string) (*models.StoredFile, error)
}

// FileURL is the API path a stored file is served from.
func FileURL(id string) string {
	return "/api/v1/files/" + id
}
