package store

import (
	"context"
	"strings"

	"gorm.io/datatypes"

	"medconnect-server/internal/models"
)

func (s *Store) CreateRecord(ctx context.Context, rec *models.HealthRecord) error {
	return wrap(s.conn(ctx).Create(rec).Error, "health record")
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.HealthRecord, error) {
	var rec models.HealthRecord
	if err := s.conn(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "health record")
	}
	return &rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, rec *models.HealthRecord) error {
	return wrap(s.conn(ctx).Save(rec).Error, "health record")
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&models.HealthRecord{}, "id = ?", id)
	if res.Error != nil {
		return wrap(res.Error, "health record")
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, "health record")
	}
	return nil
}

// ListRecords returns a patient's records, newest first. recordType may be empty.
func (s *Store) ListRecords(ctx context.Context, patientID string, recordType models.HealthRecordType) ([]models.HealthRecord, error) {
	var recs []models.HealthRecord
	q := s.conn(ctx).Where("patient_id = ?", patientID).Order("record_date desc, created_at desc")
	if recordType != "" {
		q = q.Where("record_type = ?", recordType)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, wrap(err, "health records")
	}
	return recs, nil
}

// ListRecordsSharedWith returns records whose share list contains email.
// Share lists hold lower-cased emails.
func (s *Store) ListRecordsSharedWith(ctx context.Context, email string) ([]models.HealthRecord, error) {
	var recs []models.HealthRecord
	err := s.conn(ctx).
		Where(datatypes.JSONArrayQuery("shared_with").Contains(strings.ToLower(email))).
		Order("record_date desc").
		Find(&recs).Error
	if err != nil {
		return nil, wrap(err, "health records")
	}
	return recs, nil
}

// CountOwnedRecords counts how many of ids belong to patientID.
func (s *Store) CountOwnedRecords(ctx context.Context, patientID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := s.conn(ctx).Model(&models.HealthRecord{}).
		Where("patient_id = ? AND id IN ?", patientID, ids).
		Count(&count).Error
	return count, wrap(err, "health records")
}

func (s *Store) CreateFile(ctx context.Context, f *models.StoredFile) error {
	return wrap(s.conn(ctx).Create(f).Error, "file")
}

func (s *Store) GetFile(ctx context.Context, id string) (*models.StoredFile, error) {
	var f models.StoredFile
	if err := s.conn(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "file")
	}
	return &f, nil
}

// FileSharedWith reports whether any record carrying fileID is shared with email.
func (s *Store) FileSharedWith(ctx context.Context, fileID, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var count int64
	err := s.conn(ctx).Model(&models.HealthRecord{}).
		Where("file_id = ?", fileID).
		Where(datatypes.JSONArrayQuery("shared_with").Contains(strings.ToLower(email))).
		Count(&count).Error
	if err != nil {
		return false, wrap(err, "health records")
	}
	return count > 0, nil
}
