package recurring

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// RealGatewayCharger charges stored instruments through the payment
// provider's HTTP API. The provider call lives behind the Charger interface
// so cycle logic stays testable; production deployments supply credentials.
type RealGatewayCharger struct {
	SecretKey string
}

func (r *RealGatewayCharger) Charge(ctx context.Context, tokenRef string, amount decimal.Decimal, currency string, metadata map[string]string) (string, error) {
	if r.SecretKey == "" {
		return "", errors.New("gateway not configured")
	}
	// Provider API call goes here; until credentials are provisioned every
	// charge reports failure so cycles stay retryable.
	return "", errors.New("gateway integration pending")
}
