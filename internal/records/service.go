// Package records manages patient health records, sharing and attached files.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/datatypes"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/integrations"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

type Repository interface {
	CreateRecord(ctx context.Context, rec *models.HealthRecord) error
	GetRecord(ctx context.Context, id string) (*models.HealthRecord, error)
	SaveRecord(ctx context.Context, rec *models.HealthRecord) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context, patientID string, recordType models.HealthRecordType) ([]models.HealthRecord, error)
	ListRecordsSharedWith(ctx context.Context, email string) ([]models.HealthRecord, error)
	CountOwnedRecords(ctx context.Context, patientID string, ids []string) (int64, error)
	GetFile(ctx context.Context, id string) (*models.StoredFile, error)
	FileSharedWith(ctx context.Context, fileID, email string) (bool, error)
}

type Service struct {
	repo   Repository
	ai     integrations.Integrations
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, ai integrations.Integrations, log *logger.Logger) *Service {
	return &Service{repo: repo, ai: ai, logger: log, now: time.Now}
}

var recordTypes = map[models.HealthRecordType]bool{
	models.RecordTypeLabReport:        true,
	models.RecordTypePrescription:     true,
	models.RecordTypeImaging:          true,
	models.RecordTypeVaccination:      true,
	models.RecordTypeDischargeSummary: true,
	models.RecordTypeConsultation:     true,
	models.RecordTypeOther:            true,
}

// Input is the editable part of a health record.
type Input struct {
	Title         string                  `json:"title"`
	RecordType    models.HealthRecordType `json:"recordType"`
	RecordDate    string                  `json:"recordDate"`
	Description   string                  `json:"description"`
	DoctorName    string                  `json:"doctorName"`
	FileURL       string                  `json:"fileUrl"`
	FileID        string                  `json:"fileId"`
	LinkedRecords []string                `json:"linkedRecords"`
}

func (in Input) parse(now time.Time) (time.Time, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if in.RecordType != "" && !recordTypes[in.RecordType] {
		fields["recordType"] = "unknown record type"
	}
	date := now
	if in.RecordDate != "" {
		d, err := time.ParseInLocation(models.DateLayout, in.RecordDate, time.Local)
		if err != nil {
			fields["recordDate"] = "use YYYY-MM-DD"
		}
		date = d
	}
	if len(fields) > 0 {
		return time.Time{}, apperr.ValidationFields("invalid health record", fields)
	}
	return date, nil
}

func requireOwner(actor models.Actor) error {
	if !actor.Is(models.RolePatient) {
		return apperr.Forbidden("only patients keep health records")
	}
	return nil
}

func canRead(actor models.Actor, rec *models.HealthRecord) bool {
	return rec.PatientID == actor.ID || actor.Is(models.RoleAdmin) || rec.SharedWithEmail(actor.Email)
}

// checkLinks ensures every linked id is a distinct record of the same patient.
func (s *Service) checkLinks(ctx context.Context, patientID, selfID string, links []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(links))
	for _, id := range links {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if id == selfID {
			return nil, apperr.ValidationFields("a record cannot link to itself", map[string]string{"linkedRecords": id})
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return out, nil
	}
	n, err := s.repo.CountOwnedRecords(ctx, patientID, out)
	if err != nil {
		return nil, err
	}
	if int(n) != len(out) {
		return nil, apperr.ValidationFields("linked records must be your own records", map[string]string{"linkedRecords": "unknown record"})
	}
	return out, nil
}

// checkFile ensures an attached upload belongs to the actor.
func (s *Service) checkFile(ctx context.Context, actor models.Actor, fileID string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil
	}
	f, err := s.repo.GetFile(ctx, fileID)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && f.OwnerID != actor.ID) {
		return apperr.ValidationFields("attached file must be one of your uploads", map[string]string{"fileId": "unknown file"})
	}
	return err
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in Input) (*models.HealthRecord, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	date, err := in.parse(s.now())
	if err != nil {
		return nil, err
	}
	links, err := s.checkLinks(ctx, actor.ID, "", in.LinkedRecords)
	if err != nil {
		return nil, err
	}
	if err := s.checkFile(ctx, actor, in.FileID); err != nil {
		return nil, err
	}
	rec := &models.HealthRecord{
		PatientID:     actor.ID,
		PatientEmail:  strings.ToLower(actor.Email),
		LinkedRecords: links,
		SharedWith:    []string{},
	}
	apply(rec, in, date)
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Audit(actor.ID, "create", "health_record", true, map[string]interface{}{"record_id": rec.ID})
	return rec, nil
}

func apply(rec *models.HealthRecord, in Input, date time.Time) {
	rec.Title = strings.TrimSpace(in.Title)
	rec.RecordType = in.RecordType
	if rec.RecordType == "" {
		rec.RecordType = models.RecordTypeOther
	}
	rec.RecordDate = date
	rec.Description = strings.TrimSpace(in.Description)
	rec.DoctorName = strings.TrimSpace(in.DoctorName)
	rec.FileURL = strings.TrimSpace(in.FileURL)
	rec.FileID = strings.TrimSpace(in.FileID)
	if rec.FileID != "" && rec.FileURL == "" {
		rec.FileURL = integrations.FileURL(rec.FileID)
	}
}

func (s *Service) owned(ctx context.Context, actor models.Actor, id string) (*models.HealthRecord, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.PatientID != actor.ID {
		return nil, apperr.Forbidden("only the owner can change this record")
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, actor models.Actor, id string, in Input) (*models.HealthRecord, error) {
	rec, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	date, err := in.parse(s.now())
	if err != nil {
		return nil, err
	}
	links, err := s.checkLinks(ctx, actor.ID, rec.ID, in.LinkedRecords)
	if err != nil {
		return nil, err
	}
	if err := s.checkFile(ctx, actor, in.FileID); err != nil {
		return nil, err
	}
	apply(rec, in, date)
	rec.LinkedRecords = links
	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	rec, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRecord(ctx, rec.ID); err != nil {
		return err
	}
	s.logger.Audit(actor.ID, "delete", "health_record", true, map[string]interface{}{"record_id": rec.ID})
	return nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.HealthRecord, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, rec) {
		return nil, apperr.Forbidden("you are not authorized to view this record")
	}
	return rec, nil
}

// List returns the actor's own records, or with shared set the records
// other patients shared with the actor's email.
func (s *Service) List(ctx context.Context, actor models.Actor, recordType models.HealthRecordType, shared bool) ([]models.HealthRecord, error) {
	if shared {
		return s.repo.ListRecordsSharedWith(ctx, actor.Email)
	}
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	return s.repo.ListRecords(ctx, actor.ID, recordType)
}

func normaliseEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", apperr.ValidationFields("invalid email", map[string]string{"email": "enter a valid email address"})
	}
	return strings.ToLower(addr.Address), nil
}

// Share grants read access to the holder of email.
func (s *Service) Share(ctx context.Context, actor models.Actor, id, email string) (*models.HealthRecord, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	rec, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(email, actor.Email) {
		return nil, apperr.Validation("you already own this record")
	}
	if rec.SharedWithEmail(email) {
		return rec, nil
	}
	rec.SharedWith = append(rec.SharedWith, email)
	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Audit(actor.ID, "share", "health_record", true, map[string]interface{}{"record_id": rec.ID, "email": email})
	return rec, nil
}

func (s *Service) Unshare(ctx context.Context, actor models.Actor, id, email string) (*models.HealthRecord, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	rec, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(rec.SharedWith))
	for _, e := range rec.SharedWith {
		if !strings.EqualFold(e, email) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(rec.SharedWith) {
		return rec, nil
	}
	rec.SharedWith = kept
	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Audit(actor.ID, "unshare", "health_record", true, map[string]interface{}{"record_id": rec.ID, "email": email})
	return rec, nil
}

// Upload stores a file for later attachment to a record.
func (s *Service) Upload(ctx context.Context, actor models.Actor, file integrations.FileUpload) (*integrations.UploadedFile, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	file.OwnerID = actor.ID
	return s.ai.UploadFile(ctx, file)
}

// Extract reads structured data out of the record's attached file.
func (s *Service) Extract(ctx context.Context, actor models.Actor, id string) (*models.HealthRecord, error) {
	rec, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if rec.FileID == "" {
		return nil, apperr.Validation("this record has no uploaded file to read")
	}
	data, err := s.ai.ExtractDataFromUploadedFile(ctx, rec.FileID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apperr.Internal("could not encode extracted data", err)
	}
	rec.ExtractedData = datatypes.JSON(raw)
	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// File returns an uploaded file to its owner, an admin, or anyone a record
// carrying the file is shared with.
func (s *Service) File(ctx context.Context, actor models.Actor, fileID string) (*models.StoredFile, error) {
	f, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID == actor.ID || actor.Is(models.RoleAdmin) {
		return f, nil
	}
	shared, err := s.repo.FileSharedWith(ctx, fileID, actor.Email)
	if err != nil {
		return nil, err
	}
	if shared {
		return f, nil
	}
	return nil, apperr.Forbidden("you are not authorized to view this file")
}

// Summary is an AI overview of the actor's records.
type Summary struct {
	Records int    `json:"records"`
	Summary string `json:"summary"`
}

func (s *Service) Summarize(ctx context.Context, actor models.Actor) (*Summary, error) {
	recs, err := s.List(ctx, actor, "", false)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return &Summary{Summary: "No health records yet."}, nil
	}
	var b strings.Builder
	b.WriteString("Summarise these health records for the patient:\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s (%s, %s)", r.Title, r.RecordType, r.RecordDate.Format(models.DateLayout))
		if r.Description != "" {
			fmt.Fprintf(&b, ": %s", r.Description)
		}
		b.WriteByte('\n')
	}
	raw, err := s.ai.InvokeLLM(ctx, integrations.LLMRequest{Purpose: integrations.PurposeRecordSummary, Prompt: b.String()})
	if err != nil {
		return nil, err
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Summary == "" {
		return nil, apperr.Internal("record summary returned malformed data", err)
	}
	return &Summary{Records: len(recs), Summary: out.Summary}, nil
}
