// Package mockserver is an in-memory storefront backend and payment processor
// used for local runs and end-to-end tests.
package mockserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret  string
	TokenTTL   time.Duration
	PaymentKey string // required bearer on the payment double when set
	Logger     *zap.Logger
}

type account struct {
	user     domain.User
	password string
}

type order struct {
	ID             string
	UserID         string
	IdempotencyKey string
	Items          []domain.CheckoutItem
	Total          decimal.Decimal
	Status         domain.OrderStatus
	IntentID       string
}

type intent struct {
	ID      string
	Secret  string
	OrderID string
	Amount  decimal.Decimal
	Status  domain.PaymentStatus
}

// Server holds every piece of backend state behind one mutex.
type Server struct {
	mu          sync.Mutex
	secret      []byte
	ttl         time.Duration
	paymentKey  string
	products    []domain.Product
	accounts    map[string]*account // by email
	favorites   map[string][]string // user id -> product ids
	orders      map[string]*order
	idempotency map[string]string // user id + key -> order id
	intents     map[string]*intent
	seq         int

	declineNext     bool
	failNextConfirm bool

	now func() time.Time
	log *zap.Logger
}

func New(opts Options) *Server {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "storefront-dev-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		secret:      []byte(opts.JWTSecret),
		ttl:         opts.TokenTTL,
		paymentKey:  opts.PaymentKey,
		accounts:    make(map[string]*account),
		favorites:   make(map[string][]string),
		orders:      make(map[string]*order),
		idempotency: make(map[string]string),
		intents:     make(map[string]*intent),
		now:         time.Now,
		log:         opts.Logger.Named("mockserver"),
	}
	s.seed()
	return s
}

// Handler serves the storefront REST API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/admin-login", s.adminLogin)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/slug/{slug}", s.productBySlug)
			r.Group(func(r chi.Router) {
				r.Use(s.authRequired, adminRequired)
				r.Post("/", s.createProduct)
				r.Patch("/{id}", s.updateProduct)
				r.Delete("/{id}", s.deleteProduct)
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(s.authRequired)
			r.Get("/favorites", s.listFavorites)
			r.Post("/favorites", s.addFavorite)
			r.Delete("/favorites/{id}", s.removeFavorite)
			r.Post("/checkout", s.createCheckout)
			r.Post("/checkout/confirm-payment", s.confirmPayment)
		})
	})
	return r
}

// PaymentHandler serves the payment processor double.
func (s *Server) PaymentHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Post("/v1/payment_intents/{id}/confirm", s.confirmIntent)
	return r
}

// DeclineNextPayment makes the next intent confirmation fail with a card decline.
func (s *Server) DeclineNextPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declineNext = true
}

// FailNextConfirm makes the next confirm-payment call answer 500 after the charge.
func (s *Server) FailNextConfirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextConfirm = true
}

// OrderStatus returns the recorded status of an order.
func (s *Server) OrderStatus(id string) (domain.OrderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return "", false
	}
	return o.Status, true
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func (s *Server) productIndex(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
