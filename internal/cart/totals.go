package cart

import (
	"math"

	"medconnect-server/internal/config"
	"medconnect-server/internal/models"
)

// Totals is the priced summary of a cart.
type Totals struct {
	ItemCount    int     `json:"itemCount"`
	Subtotal     float64 `json:"subtotal"`
	DeliveryFee  float64 `json:"deliveryFee"`
	Total        float64 `json:"total"`
	FreeDelivery bool    `json:"freeDelivery"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals prices items. Delivery is free once the subtotal reaches the
// threshold; an empty cart costs nothing.
func ComputeTotals(items []models.CartItem, rules config.CommerceConfig) Totals {
	var t Totals
	for _, it := range items {
		t.ItemCount += it.Quantity
		t.Subtotal += it.Price * float64(it.Quantity)
	}
	t.Subtotal = round2(t.Subtotal)
	if len(items) == 0 {
		return t
	}
	if t.Subtotal >= rules.FreeDeliveryThreshold {
		t.FreeDelivery = true
	} else {
		t.DeliveryFee = rules.DeliveryFee
	}
	t.Total = round2(t.Subtotal + t.DeliveryFee)
	return t
}
