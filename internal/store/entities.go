package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

// EntityQuery is a generic list query. Filters and Sort use JSON field names.
type EntityQuery struct {
	Filters map[string]string
	Sort    string
	Limit   int
}

// Entity describes one table reachable through the generic entity API.
type Entity struct {
	Name    string
	columns map[string]string
	newOne  func() interface{}
	newList func() interface{}
}

// Fields lists the filterable JSON fields, sorted.
func (e Entity) Fields() []string {
	fields := make([]string, 0, len(e.columns))
	for f := range e.columns {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func entity[T any](name string, columns map[string]string) Entity {
	cols := map[string]string{"id": "id", "createdAt": "created_at", "updatedAt": "updated_at"}
	for k, v := range columns {
		cols[k] = v
	}
	return Entity{
		Name:    name,
		columns: cols,
		newOne:  func() interface{} { return new(T) },
		newList: func() interface{} { return &[]T{} },
	}
}

var entities = map[string]Entity{}

func register(e Entity) {
	entities[e.Name] = e
}

func init() {
	register(entity[models.DoctorProfile]("Doctor", map[string]string{
		"userId": "user_id", "specialty": "specialty", "hospitalName": "hospital_name",
		"consultationFee": "consultation_fee", "rating": "rating", "experienceYears": "experience_years",
	}))
	register(entity[models.Appointment]("Appointment", map[string]string{
		"patientId": "patient_id", "patientEmail": "patient_email", "doctorId": "doctor_id",
		"date": "date", "timeSlot": "time_slot", "status": "status", "consultationType": "consultation_type",
	}))
	register(entity[models.Prescription]("Prescription", map[string]string{
		"appointmentId": "appointment_id", "patientId": "patient_id", "patientEmail": "patient_email",
		"doctorId": "doctor_id",
	}))
	register(entity[models.HealthRecord]("HealthRecord", map[string]string{
		"patientId": "patient_id", "patientEmail": "patient_email", "recordType": "record_type",
		"recordDate": "record_date", "title": "title",
	}))
	register(entity[models.EmergencyRequest]("EmergencyRequest", map[string]string{
		"patientId": "patient_id", "status": "status", "emergencyType": "emergency_type",
	}))
	register(entity[models.Notification]("Notification", map[string]string{
		"recipientId": "recipient_id", "recipientEmail": "recipient_email", "isRead": "is_read", "type": "type",
	}))
	register(entity[models.Order]("Order", map[string]string{
		"patientId": "patient_id", "kind": "kind", "status": "status",
	}))
	register(entity[models.Medicine]("Medicine", map[string]string{
		"name": "name", "category": "category", "price": "price", "inStock": "in_stock",
	}))
	register(entity[models.LabTest]("LabTest", map[string]string{
		"name": "name", "category": "category", "price": "price",
	}))
}

// LookupEntity returns the registered entity called name.
func LookupEntity(name string) (Entity, error) {
	e, ok := entities[name]
	if !ok {
		return Entity{}, apperr.NotFound(fmt.Sprintf("unknown entity %q", name))
	}
	return e, nil
}

// EntityNames lists the registered entity names, sorted.
func EntityNames() []string {
	names := make([]string, 0, len(entities))
	for n := range entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListEntities runs a filtered, sorted, limited query over the entity's table.
func (s *Store) ListEntities(ctx context.Context, e Entity, query EntityQuery) (interface{}, error) {
	q := s.conn(ctx).Model(e.newOne())
	for field, value := range query.Filters {
		col, ok := e.columns[field]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("cannot filter %s by %q", e.Name, field))
		}
		q = q.Where(col+" = ?", value)
	}

	if query.Sort != "" {
		field, desc := strings.TrimPrefix(query.Sort, "-"), strings.HasPrefix(query.Sort, "-")
		col, ok := e.columns[field]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("cannot sort %s by %q", e.Name, field))
		}
		if desc {
			col += " desc"
		}
		q = q.Order(col)
	} else {
		q = q.Order("created_at desc")
	}

	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	list := e.newList()
	if err := q.Find(list).Error; err != nil {
		return nil, wrap(err, e.Name)
	}
	return list, nil
}

func (s *Store) GetEntity(ctx context.Context, e Entity, id string) (interface{}, error) {
	obj := e.newOne()
	if err := s.conn(ctx).First(obj, "id = ?", id).Error; err != nil {
		return nil, wrap(err, e.Name)
	}
	return obj, nil
}

// CreateEntity decodes payload into a new row of the entity and inserts it.
func (s *Store) CreateEntity(ctx context.Context, e Entity, payload []byte) (interface{}, error) {
	obj := e.newOne()
	if err := json.Unmarshal(payload, obj); err != nil {
		return nil, apperr.Validation("invalid " + e.Name + " payload: " + err.Error())
	}
	if err := s.conn(ctx).Create(obj).Error; err != nil {
		return nil, wrap(err, e.Name)
	}
	return obj, nil
}

// UpdateEntity applies payload as a partial update on top of the stored row.
func (s *Store) UpdateEntity(ctx context.Context, e Entity, id string, payload []byte) (interface{}, error) {
	obj := e.newOne()
	if err := s.conn(ctx).First(obj, "id = ?", id).Error; err != nil {
		return nil, wrap(err, e.Name)
	}
	payload, err := withoutKeys(payload, "id", "createdAt", "updatedAt")
	if err != nil {
		return nil, apperr.Validation("invalid " + e.Name + " payload: " + err.Error())
	}
	if err := json.Unmarshal(payload, obj); err != nil {
		return nil, apperr.Validation("invalid " + e.Name + " payload: " + err.Error())
	}
	if err := s.conn(ctx).Model(obj).Select("*").Omit("id", "created_at").Updates(obj).Error; err != nil {
		return nil, wrap(err, e.Name)
	}
	return s.GetEntity(ctx, e, id)
}

func (s *Store) DeleteEntity(ctx context.Context, e Entity, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(e.newOne())
	if res.Error != nil {
		return wrap(res.Error, e.Name)
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, e.Name)
	}
	return nil
}

// withoutKeys drops top-level keys from a JSON object.
func withoutKeys(payload []byte, keys ...string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(fields, k)
	}
	return json.Marshal(fields)
}
