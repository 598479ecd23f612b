// Package symptoms runs the AI symptom assessment and the health assistant chat.
package symptoms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/integrations"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

// Severity levels accepted by the checker.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

var responseSchema = json.RawMessage(`{
  "type": "object",
  "required": ["urgency_level", "possible_conditions", "recommended_specialist", "advice"],
  "properties": {
    "urgency_level": {"type": "string", "enum": ["low", "medium", "high"]},
    "possible_conditions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "likelihood": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "recommended_specialist": {"type": "string"},
    "advice": {"type": "string"}
  }
}`)

// DoctorLister finds candidate doctors.
type DoctorLister interface {
	ListDoctors(ctx context.Context, q string) ([]models.Doctor, error)
}

type Service struct {
	ai      integrations.Integrations
	doctors DoctorLister
	logger  *logger.Logger
}

func NewService(ai integrations.Integrations, doctors DoctorLister, log *logger.Logger) *Service {
	return &Service{ai: ai, doctors: doctors, logger: log}
}

// Input is the symptom checker form.
type Input struct {
	Symptoms string `json:"symptoms"`
	Duration string `json:"duration"`
	Severity string `json:"severity"`
	Age      int    `json:"age"`
	Notes    string `json:"notes"`
}

func (in Input) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Symptoms) == "" {
		fields["symptoms"] = "describe your symptoms"
	}
	switch in.Severity {
	case SeverityMild, SeverityModerate, SeveritySevere:
	default:
		fields["severity"] = "choose mild, moderate or severe"
	}
	if in.Age < 0 || in.Age > 130 {
		fields["age"] = "enter a valid age"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid symptom details", fields)
	}
	return nil
}

// Prompt renders the assessment prompt.
func (in Input) Prompt() string {
	var b strings.Builder
	b.WriteString("Assess the following symptoms and suggest the right specialist.\n")
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.TrimSpace(in.Symptoms))
	if d := strings.TrimSpace(in.Duration); d != "" {
		fmt.Fprintf(&b, "Duration: %s\n", d)
	}
	fmt.Fprintf(&b, "Severity: %s\n", in.Severity)
	if in.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", in.Age)
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		fmt.Fprintf(&b, "Additional notes: %s\n", n)
	}
	b.WriteString("Respond with urgency_level, possible_conditions, recommended_specialist and advice.")
	return b.String()
}

type Condition struct {
	Name        string `json:"name"`
	Likelihood  string `json:"likelihood"`
	Description string `json:"description"`
}

// Assessment is the fixed response shape of the AI assessment.
type Assessment struct {
	UrgencyLevel          string      `json:"urgency_level"`
	PossibleConditions    []Condition `json:"possible_conditions"`
	RecommendedSpecialist string      `json:"recommended_specialist"`
	Advice                string      `json:"advice"`
}

func decodeAssessment(raw json.RawMessage) (*Assessment, error) {
	var a Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, apperr.Internal("symptom assessment returned malformed data", err)
	}
	var missing []string
	if a.UrgencyLevel == "" {
		missing = append(missing, "urgency_level")
	}
	if a.PossibleConditions == nil {
		missing = append(missing, "possible_conditions")
	}
	if a.RecommendedSpecialist == "" {
		missing = append(missing, "recommended_specialist")
	}
	if a.Advice == "" {
		missing = append(missing, "advice")
	}
	if len(missing) > 0 {
		return nil, apperr.Internal("symptom assessment is missing "+strings.Join(missing, ", "), nil)
	}
	return &a, nil
}

// Result pairs the assessment with matching doctors.
type Result struct {
	Assessment Assessment      `json:"assessment"`
	Doctors    []models.Doctor `json:"doctors"`
}

// Assess asks the AI for an assessment and lists doctors whose specialty
// matches the recommendation.
func (s *Service) Assess(ctx context.Context, actor models.Actor, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	raw, err := s.ai.InvokeLLM(ctx, integrations.LLMRequest{
		Purpose:        integrations.PurposeSymptomAssessment,
		Prompt:         in.Prompt(),
		ResponseSchema: responseSchema,
	})
	if err != nil {
		return nil, integrationError("symptom assessment failed", err)
	}
	assessment, err := decodeAssessment(raw)
	if err != nil {
		return nil, err
	}

	result := &Result{Assessment: *assessment, Doctors: []models.Doctor{}}
	all, err := s.doctors.ListDoctors(ctx, "")
	if err != nil {
		s.logger.WithComponent("symptoms").WithError(err).Warn("Failed to list doctors for assessment")
		return result, nil
	}
	for _, d := range all {
		if d.MatchesSpecialty(assessment.RecommendedSpecialist) {
			result.Doctors = append(result.Doctors, d)
		}
	}
	s.logger.WithUserID(actor.ID).
		WithField("urgency", assessment.UrgencyLevel).
		WithField("specialist", assessment.RecommendedSpecialist).
		Info("Symptom assessment completed")
	return result, nil
}

// Ask forwards a free-text question to the health assistant.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.ValidationFields("question is required", map[string]string{"question": "ask something"})
	}
	answer, err := s.ai.QueryAI(ctx, question)
	if err != nil {
		return "", integrationError("assistant is unavailable", err)
	}
	return answer, nil
}

// integrationError keeps classified errors and wraps everything else.
func integrationError(message string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(message, err)
}
