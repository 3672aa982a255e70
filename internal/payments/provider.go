// Package payments routes charge requests to a configured provider. The
// storefront ships with a simulated provider only; the seam exists so a real
// PSP adapter can slot in without touching the services layer.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the charge was captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the charge failed and no further action is possible.
	StatusFailed Status = "failed"
)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// ErrChargeDeclined is returned when the provider declines the charge.
var ErrChargeDeclined = errors.New("payments: charge declined")

// ChargeRequest captures a single charge attempt for an order.
type ChargeRequest struct {
	UserID   string
	OrderID  string
	Amount   int64
	Currency string
	// Method is the customer-facing payment method label ("card", "paypal").
	// It doubles as a provider routing hint when a provider is registered
	// under that name.
	Method   string
	Metadata map[string]string
}

// ChargeResult normalises provider-specific charge outcomes.
type ChargeResult struct {
	Provider  string
	Reference string
	Status    Status
	Amount    int64
	Currency  string
}

// Provider defines the contract payment adapters implement.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the provider used when the request method has
// no registered provider of its own.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = strings.TrimSpace(strings.ToLower(provider))
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{providers: copyMap}
	if _, ok := copyMap["simulated"]; ok {
		m.defaultProvider = "simulated"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Charge resolves a provider for the request and delegates to it.
func (m *Manager) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	name, provider, err := m.resolveProvider(req.Method)
	if err != nil {
		return ChargeResult{}, err
	}
	result, err := provider.Charge(ctx, req)
	if err != nil {
		return ChargeResult{}, err
	}
	if result.Provider == "" {
		result.Provider = name
	}
	return result, nil
}

func (m *Manager) resolveProvider(method string) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if key := strings.TrimSpace(strings.ToLower(method)); key != "" {
		if p, ok := m.providers[key]; ok {
			return key, p, nil
		}
	}
	if def := m.defaultProvider; def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}
