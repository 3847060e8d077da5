package mockserver

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	SeedCustomerEmail    = "alice@example.com"
	SeedCustomerPassword = "password123"
	SeedAdminEmail       = "admin@example.com"
	SeedAdminPassword    = "admin123"
)

func (s *Server) seed() {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	products := []struct {
		slug, name, price, colour, size string
		tags                            []string
		stock, sold                     int
	}{
		{"classic-tee", "Classic Tee", "25.00", "white", "m", []string{"shirts", "basics"}, 40, 120},
		{"canvas-cap", "Canvas Cap", "10.00", "navy", "", []string{"hats"}, 25, 80},
		{"denim-jacket", "Denim Jacket", "89.90", "blue", "l", []string{"jackets"}, 8, 35},
		{"wool-scarf", "Wool Scarf", "19.99", "grey", "", []string{"accessories"}, 0, 12},
		{"linen-shirt", "Linen Shirt", "45.50", "sand", "m", []string{"shirts"}, 15, 60},
	}
	for i, p := range products {
		s.products = append(s.products, domain.Product{
			ID:         s.nextID(""),
			Slug:       p.slug,
			Name:       p.name,
			Price:      decimal.RequireFromString(p.price),
			Tags:       p.tags,
			Colour:     p.colour,
			Size:       p.size,
			InStock:    p.stock > 0,
			TotalStock: p.stock,
			SoldCount:  p.sold,
			CreatedAt:  created.AddDate(0, 0, i),
		})
	}

	s.addAccount(domain.User{ID: s.nextID("u-"), Username: "alice", Email: SeedCustomerEmail, Role: domain.RoleCustomer}, SeedCustomerPassword)
	s.addAccount(domain.User{ID: s.nextID("u-"), Username: "admin", Email: SeedAdminEmail, Role: domain.RoleAdmin}, SeedAdminPassword)
}

func (s *Server) addAccount(u domain.User, password string) {
	s.accounts[u.Email] = &account{user: u, password: password}
}
