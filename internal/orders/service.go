// Package orders advances pharmacy and lab orders through fulfilment.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

// Fulfilment paths per order kind. Cancellation is handled separately.
var paths = map[models.CartKind][]models.OrderStatus{
	models.CartPharmacy: {models.OrderPlaced, models.OrderConfirmed, models.OrderShipped, models.OrderDelivered},
	models.CartLab:      {models.OrderPlaced, models.OrderConfirmed, models.OrderSampleCollected, models.OrderCompleted},
}

// CanTransition reports whether an order of kind may move from one status to another.
func CanTransition(kind models.CartKind, from, to models.OrderStatus) bool {
	if to == models.OrderCancelled {
		return from == models.OrderPlaced || from == models.OrderConfirmed
	}
	path := paths[kind]
	for i := 0; i+1 < len(path); i++ {
		if path[i] == from {
			return path[i+1] == to
		}
	}
	return false
}

// Tx is the set of writes an order status change performs atomically.
type Tx interface {
	TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error
	CreateRecord(ctx context.Context, rec *models.HealthRecord) error
}

type Repository interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

type Notifier interface {
	NotifyBestEffort(ctx context.Context, n *models.Notification)
}

type storeRepository struct {
	*store.Store
}

// NewRepository adapts a Store to Repository.
func NewRepository(s *store.Store) Repository {
	return storeRepository{s}
}

func (r storeRepository) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	return r.Transaction(ctx, func(tx *store.Store) error {
		return fn(tx)
	})
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, log *logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: log, now: time.Now}
}

// fulfils reports whether the actor may advance orders of kind.
func fulfils(actor models.Actor, kind models.CartKind) bool {
	if actor.Is(models.RoleAdmin) {
		return true
	}
	return kind == models.CartLab && actor.Is(models.RoleLabPartner)
}

func canView(actor models.Actor, o *models.Order) bool {
	return o.PatientID == actor.ID || fulfils(actor, o.Kind)
}

func (s *Service) List(ctx context.Context, actor models.Actor, kind models.CartKind, status models.OrderStatus) ([]models.Order, error) {
	f := store.OrderFilter{Kind: kind, Status: status}
	switch actor.Role {
	case models.RolePatient:
		f.PatientID = actor.ID
	case models.RoleLabPartner:
		if kind != "" && kind != models.CartLab {
			return nil, apperr.Forbidden("lab partners can only view lab orders")
		}
		f.Kind = models.CartLab
	case models.RoleAdmin:
	default:
		return nil, apperr.Forbidden("your role cannot view orders")
	}
	return s.repo.ListOrders(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, o) {
		return nil, apperr.Forbidden("you are not authorized to view this order")
	}
	return o, nil
}

// StatusChange is a requested order transition.
type StatusChange struct {
	Status    models.OrderStatus `json:"status" binding:"required"`
	ReportURL string             `json:"reportUrl"`
}

// UpdateStatus advances or cancels an order. Completing a lab order with a
// report URL also files the report in the patient's health records.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, change StatusChange) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if change.Status == models.OrderCancelled {
		if o.PatientID != actor.ID && !actor.Is(models.RoleAdmin) {
			return nil, apperr.Forbidden("only the patient or an admin can cancel this order")
		}
	} else if !fulfils(actor, o.Kind) {
		return nil, apperr.Forbidden(fmt.Sprintf("you cannot update %s orders", o.Kind))
	}
	if !CanTransition(o.Kind, o.Status, change.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot change a %s %s order to %s", o.Status, o.Kind, change.Status))
	}

	updates := map[string]interface{}{}
	var report *models.HealthRecord
	reportURL := strings.TrimSpace(change.ReportURL)
	if reportURL != "" {
		if o.Kind != models.CartLab || change.Status != models.OrderCompleted {
			return nil, apperr.Validation("a report can only be attached when completing a lab order")
		}
		updates["report_url"] = reportURL
		report = labReport(o, reportURL, s.now())
	}

	err = s.repo.Atomically(ctx, func(tx Tx) error {
		if err := tx.TransitionOrder(ctx, o.ID, o.Status, change.Status, updates); err != nil {
			return err
		}
		if report != nil {
			return tx.CreateRecord(ctx, report)
		}
		return nil
	})
	if err != nil {
		s.logger.Audit(actor.ID, "status:"+string(change.Status), "order", false, map[string]interface{}{"order_id": o.ID, "error": err.Error()})
		return nil, err
	}
	from := o.Status
	o.Status = change.Status
	if reportURL != "" {
		o.ReportURL = reportURL
	}
	s.logger.Audit(actor.ID, "status:"+string(change.Status), "order", true, map[string]interface{}{"order_id": o.ID, "from": from})

	if actor.ID != o.PatientID {
		s.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID:    o.PatientID,
			RecipientEmail: o.PatientEmail,
			Title:          "Order update",
			Message:        statusMessage(o),
			Type:           models.NotificationOrder,
			RelatedID:      o.ID,
		})
	}
	return o, nil
}

func labReport(o *models.Order, url string, at time.Time) *models.HealthRecord {
	names := make([]string, len(o.Items))
	for i, it := range o.Items {
		names[i] = it.Name
	}
	return &models.HealthRecord{
		PatientID:    o.PatientID,
		PatientEmail: o.PatientEmail,
		Title:        "Lab report: " + strings.Join(names, ", "),
		RecordType:   models.RecordTypeLabReport,
		RecordDate:   at,
		Description:  fmt.Sprintf("Results for lab order %s.", o.ID),
		FileURL:      url,
	}
}

func statusMessage(o *models.Order) string {
	switch o.Status {
	case models.OrderConfirmed:
		return "Your order has been confirmed."
	case models.OrderShipped:
		return "Your order is on its way."
	case models.OrderDelivered:
		return "Your order has been delivered."
	case models.OrderSampleCollected:
		return "Your sample has been collected."
	case models.OrderCompleted:
		if o.ReportURL != "" {
			return "Your lab report is ready and has been added to your health records."
		}
		return "Your lab order is complete."
	case models.OrderCancelled:
		return "Your order has been cancelled."
	}
	return "Your order status changed to " + string(o.Status) + "."
}
