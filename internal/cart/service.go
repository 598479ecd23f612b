// Package cart keeps server-side pharmacy and lab carts and turns them into orders.
package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

// Outcomes of Add.
const (
	OutcomeAdded         = "added"
	OutcomeIncremented   = "incremented"
	OutcomeAlreadyInCart = "already_in_cart"
)

// Tx is the set of writes checkout performs atomically.
type Tx interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	ClearCart(ctx context.Context, userID string, kind models.CartKind) error
}

type Repository interface {
	ListCart(ctx context.Context, userID string, kind models.CartKind) ([]models.CartItem, error)
	GetCartLine(ctx context.Context, userID string, kind models.CartKind, itemID string) (*models.CartItem, error)
	SaveCartLine(ctx context.Context, item *models.CartItem) error
	DeleteCartLine(ctx context.Context, userID string, kind models.CartKind, itemID string) error
	ClearCart(ctx context.Context, userID string, kind models.CartKind) error
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	GetLabTest(ctx context.Context, id string) (*models.LabTest, error)
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
	rules    config.CommerceConfig
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, rules config.CommerceConfig, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, rules: rules, metrics: m, logger: log, now: time.Now}
}

// View is a cart with its totals.
type View struct {
	Kind    models.CartKind   `json:"kind"`
	Items   []models.CartItem `json:"items"`
	Totals  Totals            `json:"totals"`
	Outcome string            `json:"outcome,omitempty"`
}

func checkAccess(actor models.Actor, kind models.CartKind) error {
	if !kind.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown cart %q", kind))
	}
	if !actor.Is(models.RolePatient) {
		return apperr.Forbidden("only patients have carts")
	}
	return nil
}

// Get returns the actor's cart.
func (s *Service) Get(ctx context.Context, actor models.Actor, kind models.CartKind) (*View, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	return s.view(ctx, actor.ID, kind)
}

func (s *Service) view(ctx context.Context, userID string, kind models.CartKind) (*View, error) {
	items, err := s.repo.ListCart(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return &View{Kind: kind, Items: items, Totals: ComputeTotals(items, s.rules)}, nil
}

// catalogItem resolves the name and price of a catalog entry.
func (s *Service) catalogItem(ctx context.Context, kind models.CartKind, itemID string) (string, float64, error) {
	if kind == models.CartLab {
		test, err := s.repo.GetLabTest(ctx, itemID)
		if err != nil {
			return "", 0, err
		}
		return test.Name, test.Price, nil
	}
	med, err := s.repo.GetMedicine(ctx, itemID)
	if err != nil {
		return "", 0, err
	}
	if !med.InStock {
		return "", 0, apperr.Conflict(med.Name + " is out of stock")
	}
	return med.Name, med.Price, nil
}

// Add puts a catalog item in the cart. Adding a medicine already in the cart
// increments its quantity; adding a lab test twice changes nothing.
func (s *Service) Add(ctx context.Context, actor models.Actor, kind models.CartKind, itemID string, quantity int) (*View, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, apperr.ValidationFields("item is required", map[string]string{"itemId": "required"})
	}
	if quantity <= 0 || kind == models.CartLab {
		quantity = 1
	}

	outcome := OutcomeAdded
	line, err := s.repo.GetCartLine(ctx, actor.ID, kind, itemID)
	switch {
	case err == nil && kind == models.CartLab:
		outcome = OutcomeAlreadyInCart
	case err == nil:
		line.Quantity += quantity
		if err := s.repo.SaveCartLine(ctx, line); err != nil {
			return nil, err
		}
		outcome = OutcomeIncremented
	case apperr.Is(err, apperr.KindNotFound):
		name, price, err := s.catalogItem(ctx, kind, itemID)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SaveCartLine(ctx, &models.CartItem{
			UserID:   actor.ID,
			Kind:     kind,
			ItemID:   itemID,
			Name:     name,
			Price:    price,
			Quantity: quantity,
		}); err != nil {
			// a concurrent add of the same lab test won the insert
			if kind != models.CartLab || !apperr.Is(err, apperr.KindConflict) {
				return nil, err
			}
			outcome = OutcomeAlreadyInCart
		}
	default:
		return nil, err
	}

	v, err := s.view(ctx, actor.ID, kind)
	if err != nil {
		return nil, err
	}
	v.Outcome = outcome
	return v, nil
}

// SetQuantity changes a line's quantity. Zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, actor models.Actor, kind models.CartKind, itemID string, quantity int) (*View, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return s.Remove(ctx, actor, kind, itemID)
	}
	if kind == models.CartLab && quantity > 1 {
		return nil, apperr.Validation("lab tests can only be booked once per order")
	}
	line, err := s.repo.GetCartLine(ctx, actor.ID, kind, itemID)
	if err != nil {
		return nil, err
	}
	line.Quantity = quantity
	if err := s.repo.SaveCartLine(ctx, line); err != nil {
		return nil, err
	}
	return s.view(ctx, actor.ID, kind)
}

func (s *Service) Remove(ctx context.Context, actor models.Actor, kind models.CartKind, itemID string) (*View, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteCartLine(ctx, actor.ID, kind, itemID); err != nil {
		return nil, err
	}
	return s.view(ctx, actor.ID, kind)
}

func (s *Service) Clear(ctx context.Context, actor models.Actor, kind models.CartKind) (*View, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	if err := s.repo.ClearCart(ctx, actor.ID, kind); err != nil {
		return nil, err
	}
	return s.view(ctx, actor.ID, kind)
}

// CheckoutRequest carries the delivery details of an order.
type CheckoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress"`
	ContactPhone    string `json:"contactPhone"`
	CollectionDate  string `json:"collectionDate"`
}

func (s *Service) validateCheckout(kind models.CartKind, req CheckoutRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		if kind == models.CartLab {
			fields["deliveryAddress"] = "sample collection address is required"
		} else {
			fields["deliveryAddress"] = "delivery address is required"
		}
	}
	if kind == models.CartLab {
		date, err := time.ParseInLocation(models.DateLayout, req.CollectionDate, time.Local)
		switch {
		case err != nil:
			fields["collectionDate"] = "pick a collection date (YYYY-MM-DD)"
		case date.Before(truncateDay(s.now())):
			fields["collectionDate"] = "collection date cannot be in the past"
		}
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid checkout details", fields)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Checkout converts the cart into a placed, paid order and empties the cart
// in one transaction.
func (s *Service) Checkout(ctx context.Context, actor models.Actor, kind models.CartKind, req CheckoutRequest) (*models.Order, error) {
	if err := checkAccess(actor, kind); err != nil {
		return nil, err
	}
	if err := s.validateCheckout(kind, req); err != nil {
		return nil, err
	}
	items, err := s.repo.ListCart(ctx, actor.ID, kind)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.Validation("cart is empty")
	}

	totals := ComputeTotals(items, s.rules)
	lines := make([]models.OrderItem, len(items))
	for i, it := range items {
		lines[i] = models.OrderItem{ItemID: it.ItemID, Name: it.Name, Price: it.Price, Quantity: it.Quantity}
	}
	order := &models.Order{
		Kind:            kind,
		PatientID:       actor.ID,
		PatientEmail:    actor.Email,
		PatientName:     actor.Name,
		Items:           lines,
		Subtotal:        totals.Subtotal,
		DeliveryFee:     totals.DeliveryFee,
		Total:           totals.Total,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		ContactPhone:    strings.TrimSpace(req.ContactPhone),
		Status:          models.OrderPlaced,
		PaymentStatus:   models.PaymentStatusPaid,
	}
	if kind == models.CartLab {
		order.CollectionDate = req.CollectionDate
	}

	err = s.repo.Atomically(ctx, func(tx Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.ClearCart(ctx, actor.ID, kind)
	})
	if err != nil {
		s.logger.Audit(actor.ID, "checkout", "order", false, map[string]interface{}{"kind": kind, "error": err.Error()})
		return nil, err
	}

	s.metrics.OrderPlaced(string(kind))
	s.logger.Audit(actor.ID, "checkout", "order", true, map[string]interface{}{"order_id": order.ID, "kind": kind, "total": order.Total})

	message := fmt.Sprintf("Your pharmacy order of %d item(s) totalling %.2f has been placed.", totals.ItemCount, order.Total)
	if kind == models.CartLab {
		message = fmt.Sprintf("Your lab booking for %d test(s) is placed. Sample collection on %s.", len(lines), order.CollectionDate)
	}
	s.notifier.NotifyBestEffort(ctx, &models.Notification{
		RecipientID:    actor.ID,
		RecipientEmail: actor.Email,
		Title:          "Order placed",
		Message:        message,
		Type:           models.NotificationOrder,
		RelatedID:      order.ID,
	})
	return order, nil
}
