package mockserver

import (
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type paymentError struct {
	Error struct {
		Message       string         `json:"message"`
		Code          string         `json:"code,omitempty"`
		PaymentIntent *intentPayload `json:"payment_intent,omitempty"`
	} `json:"error"`
}

type intentPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount string `json:"amount"`
}

func respondPaymentError(w http.ResponseWriter, status int, code, message string, pi *intentPayload) {
	var body paymentError
	body.Error.Message = message
	body.Error.Code = code
	body.Error.PaymentIntent = pi
	respondJSON(w, status, body)
}

// POST /v1/payment_intents/{id}/confirm
func (s *Server) confirmIntent(w http.ResponseWriter, r *http.Request) {
	if s.paymentKey != "" {
		key, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if key != s.paymentKey {
			respondPaymentError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key provided", nil)
			return
		}
	}
	var req struct {
		ClientSecret string `json:"client_secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pi, ok := s.intents[chi.URLParam(r, "id")]
	if !ok || pi.Secret != req.ClientSecret {
		respondPaymentError(w, http.StatusNotFound, "resource_missing", "No such payment_intent", nil)
		return
	}
	payload := &intentPayload{ID: pi.ID, Amount: pi.Amount.StringFixed(2)}

	if pi.Status == domain.PaymentSucceeded {
		payload.Status = string(pi.Status)
		respondJSON(w, http.StatusOK, payload)
		return
	}
	if s.declineNext {
		s.declineNext = false
		pi.Status = domain.PaymentDeclined
		payload.Status = string(pi.Status)
		s.log.Info("payment declined", zap.String("intent_id", pi.ID))
		respondPaymentError(w, http.StatusPaymentRequired, "card_declined", "Your card was declined.", payload)
		return
	}

	pi.Status = domain.PaymentSucceeded
	payload.Status = string(pi.Status)
	s.log.Info("payment captured", zap.String("intent_id", pi.ID), zap.String("amount", payload.Amount))
	respondJSON(w, http.StatusOK, payload)
}
