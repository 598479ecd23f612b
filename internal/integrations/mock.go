package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

// MaxUploadSize bounds uploaded files.
const MaxUploadSize = 10 << 20

// Mock answers every call with canned data after a fixed delay.
type Mock struct {
	delay  time.Duration
	files  FileStore
	logger *logger.Logger
}

// NewMock creates a Mock. files may be nil when uploads are not used.
func NewMock(delay time.Duration, files FileStore, log *logger.Logger) *Mock {
	return &Mock{delay: delay, files: files, logger: log}
}

// wait sleeps for the configured delay or until ctx is done.
func (m *Mock) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type rule struct {
	keywords   []string
	specialist string
	urgency    string
	conditions []condition
	advice     string
}

type condition struct {
	Name        string `json:"name"`
	Likelihood  string `json:"likelihood"`
	Description string `json:"description"`
}

var rules = []rule{
	{
		keywords:   []string{"chest pain", "palpitation", "shortness of breath"},
		specialist: "Cardiologist",
		urgency:    "high",
		conditions: []condition{
			{Name: "Angina", Likelihood: "medium", Description: "Reduced blood flow to the heart muscle."},
			{Name: "Costochondritis", Likelihood: "low", Description: "Inflammation of the rib cartilage."},
		},
		advice: "Seek medical care promptly. Call emergency services if the pain spreads to the arm or jaw.",
	},
	{
		keywords:   []string{"rash", "itch", "skin", "acne"},
		specialist: "Dermatologist",
		urgency:    "low",
		conditions: []condition{
			{Name: "Contact dermatitis", Likelihood: "high", Description: "Skin reaction to an irritant or allergen."},
			{Name: "Eczema", Likelihood: "medium", Description: "Chronic dry and inflamed skin."},
		},
		advice: "Avoid suspected irritants and keep the area moisturised.",
	},
	{
		keywords:   []string{"headache", "migraine", "dizziness", "numbness"},
		specialist: "Neurologist",
		urgency:    "medium",
		conditions: []condition{
			{Name: "Tension headache", Likelihood: "high", Description: "Headache linked to stress and muscle tension."},
			{Name: "Migraine", Likelihood: "medium", Description: "Recurring throbbing headache, often one-sided."},
		},
		advice: "Rest in a dark quiet room and stay hydrated.",
	},
	{
		keywords:   []string{"stomach", "abdominal", "vomit", "diarrhea", "nausea"},
		specialist: "Gastroenterologist",
		urgency:    "medium",
		conditions: []condition{
			{Name: "Gastroenteritis", Likelihood: "high", Description: "Infection of the stomach and intestines."},
			{Name: "Acid reflux", Likelihood: "medium", Description: "Stomach acid flowing back into the oesophagus."},
		},
		advice: "Drink oral rehydration fluids and eat light meals.",
	},
	{
		keywords:   []string{"joint", "knee", "back pain", "fracture"},
		specialist: "Orthopedic",
		urgency:    "low",
		conditions: []condition{
			{Name: "Muscle strain", Likelihood: "high", Description: "Overstretched or torn muscle fibres."},
		},
		advice: "Rest the affected area and apply ice for 20 minutes at a time.",
	},
}

var fallbackRule = rule{
	specialist: "General Physician",
	urgency:    "low",
	conditions: []condition{
		{Name: "Viral infection", Likelihood: "medium", Description: "Common self-limiting infection."},
	},
	advice: "Monitor your symptoms and consult a doctor if they persist beyond a few days.",
}

func matchRule(prompt string) rule {
	text := strings.ToLower(prompt)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(text, k) {
				return r
			}
		}
	}
	return fallbackRule
}

// InvokeLLM returns a canned JSON object for the request purpose.
func (m *Mock) InvokeLLM(ctx context.Context, req LLMRequest) (json.RawMessage, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.logger.WithComponent("integrations").WithField("purpose", req.Purpose).Debug("Mock LLM invoked")

	var out interface{}
	switch req.Purpose {
	case PurposeSymptomAssessment:
		r := matchRule(req.Prompt)
		urgency := r.urgency
		if strings.Contains(strings.ToLower(req.Prompt), "severity: severe") && urgency != "high" {
			urgency = "high"
		}
		out = map[string]interface{}{
			"urgency_level":          urgency,
			"possible_conditions":    r.conditions,
			"recommended_specialist": r.specialist,
			"advice":                 r.advice,
		}
	case PurposeRecordSummary:
		out = map[string]interface{}{
			"summary": "No abnormal findings were highlighted in the supplied records.",
		}
	default:
		return nil, apperr.Validation(fmt.Sprintf("unsupported LLM purpose %q", req.Purpose))
	}
	return json.Marshal(out)
}

// QueryAI answers a free-text health question.
func (m *Mock) QueryAI(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperr.Validation("question is required")
	}
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	r := matchRule(question)
	return fmt.Sprintf("%s For a proper diagnosis, consider consulting a %s.", r.advice, r.specialist), nil
}

// UploadFile stores the file and returns its URL.
func (m *Mock) UploadFile(ctx context.Context, file FileUpload) (*UploadedFile, error) {
	if m.files == nil {
		return nil, apperr.Internal("file storage is not configured", nil)
	}
	if len(file.Data) == 0 {
		return nil, apperr.Validation("file is empty")
	}
	if len(file.Data) > MaxUploadSize {
		return nil, apperr.Validation("file exceeds the 10 MB limit")
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	stored := &models.StoredFile{
		OwnerID:     file.OwnerID,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
		Data:        file.Data,
	}
	if err := m.files.CreateFile(ctx, stored); err != nil {
		return nil, err
	}

	return &UploadedFile{
		ID:          stored.ID,
		FileURL:     FileURL(stored.ID),
		FileName:    stored.FileName,
		ContentType: stored.ContentType,
		Size:        stored.Size,
	}, nil
}

// ExtractDataFromUploadedFile returns canned structured data for a stored file.
func (m *Mock) ExtractDataFromUploadedFile(ctx context.Context, fileID string) (map[string]interface{}, error) {
	if m.files == nil {
		return nil, apperr.Internal("file storage is not configured", nil)
	}
	f, err := m.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	docType := "document"
	switch {
	case strings.HasPrefix(f.ContentType, "image/"):
		docType = "scan"
	case f.ContentType == "application/pdf":
		docType = "report"
	}

	return map[string]interface{}{
		"source_file":   f.FileName,
		"document_type": docType,
		"extracted_at":  time.Now().UTC().Format(time.RFC3339),
		"values": []map[string]interface{}{
			{"name": "Hemoglobin", "value": 13.8, "unit": "g/dL", "reference": "13.0-17.0"},
			{"name": "Fasting glucose", "value": 92, "unit": "mg/dL", "reference": "70-100"},
		},
	}, nil
}
