package checkout

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fjod/go_cart/storefront/internal/checkout")

func recordOutcome(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.Kind(err))
}
