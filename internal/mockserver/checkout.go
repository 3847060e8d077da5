package mockserver

import (
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// POST /api/checkout
// The order total is computed from catalog prices; submitted unit prices are ignored.
func (s *Server) createCheckout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req domain.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
		return
	}
	key := r.Header.Get("Idempotency-Key")

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if id, ok := s.idempotency[user.ID+"/"+key]; ok {
			o := s.orders[id]
			respondJSON(w, http.StatusOK, s.intentResponse(o))
			return
		}
	}

	total := decimal.Zero
	items := make([]domain.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity < 1 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
			return
		}
		i := s.productIndex(it.ProductID)
		if i < 0 {
			respondError(w, http.StatusBadRequest, "unknown_product", fmt.Sprintf("Product %s not found", it.ProductID))
			return
		}
		p := s.products[i]
		if !p.InStock {
			respondError(w, http.StatusConflict, "out_of_stock", fmt.Sprintf("%s is out of stock", p.Name))
			return
		}
		it.Name, it.Slug, it.UnitPrice = p.Name, p.Slug, p.Price
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, it)
	}

	o := &order{
		ID:             s.nextID("ord-"),
		UserID:         user.ID,
		IdempotencyKey: key,
		Items:          items,
		Total:          total,
		Status:         domain.OrderPending,
	}
	pi := &intent{
		ID:      s.nextID("pi_"),
		OrderID: o.ID,
		Amount:  total,
		Status:  domain.PaymentStatus("requires_confirmation"),
	}
	pi.Secret = pi.ID + "_secret_" + uuid.NewString()
	o.IntentID = pi.ID

	s.orders[o.ID] = o
	s.intents[pi.ID] = pi
	if key != "" {
		s.idempotency[user.ID+"/"+key] = o.ID
	}
	s.log.Info("order created", zap.String("order_id", o.ID), zap.String("total", total.StringFixed(2)))
	respondJSON(w, http.StatusCreated, s.intentResponse(o))
}

func (s *Server) intentResponse(o *order) domain.IntentResponse {
	total := o.Total
	return domain.IntentResponse{
		OrderID:      o.ID,
		ClientSecret: s.intents[o.IntentID].Secret,
		Total:        &total,
		Message:      "Order created",
	}
}

// POST /api/checkout/confirm-payment
// The recorded status follows the processor's view of the intent, not the client's claim.
func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req domain.ConfirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[req.OrderID]
	if !ok || o.UserID != user.ID {
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	pi, ok := s.intents[req.PaymentReference]
	if !ok || pi.OrderID != o.ID {
		respondError(w, http.StatusBadRequest, "invalid_reference", "Unknown payment reference")
		return
	}
	if s.failNextConfirm {
		s.failNextConfirm = false
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to record payment")
		return
	}

	switch pi.Status {
	case domain.PaymentSucceeded:
		if o.Status != domain.OrderPaid {
			s.markSold(o)
		}
		o.Status = domain.OrderPaid
	case domain.PaymentDeclined, domain.PaymentCanceled:
		o.Status = domain.OrderFailed
	}
	s.log.Info("payment recorded", zap.String("order_id", o.ID), zap.String("status", string(o.Status)))
	respondJSON(w, http.StatusOK, domain.OrderConfirmation{OrderID: o.ID, Status: o.Status})
}

func (s *Server) markSold(o *order) {
	for _, it := range o.Items {
		if i := s.productIndex(it.ProductID); i >= 0 {
			p := &s.products[i]
			p.SoldCount += it.Quantity
			p.TotalStock = max(0, p.TotalStock-it.Quantity)
			p.InStock = p.TotalStock > 0
		}
	}
}
