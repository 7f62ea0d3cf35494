package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// Secret and restricted key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client holds the process wide Stripe configuration.
type Client struct {
	environment string
}

// NewClient configures the Stripe SDK for cfg. The key must belong to the
// configured environment so a live deployment never runs against test keys.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment %q must be test or live", env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe %s environment requires a %s key", env, strings.Join(prefixes, "/"))
	}

	stripe.Key = apiKey

	if logg != nil {
		ctx = logg.WithField(ctx, "stripe_env", env)
		logg.Info(ctx, "stripe.configured")
		if strings.TrimSpace(cfg.Secret) == "" {
			logg.Warn(ctx, "stripe.webhook_secret_missing")
		}
	}
	return &Client{environment: env}, nil
}

// Environment reports the Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CheckoutSessions returns the live Checkout Session API, or nil when Stripe
// is not configured.
func (c *Client) CheckoutSessions() CheckoutSessions {
	if c == nil {
		return nil
	}
	return checkoutSessions{}
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}
