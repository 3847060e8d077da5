package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrAbandoned = errors.New("checkout abandoned")
	ErrEmptyCart = fmt.Errorf("%w: your cart is empty", domain.ErrValidation)
)

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrStateConflict, fmt.Sprintf(format, args...))
}
