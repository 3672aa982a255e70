package payments

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// SimulatedProviderConfig tunes the stand-in provider.
type SimulatedProviderConfig struct {
	// Delay is how long a charge takes, mimicking a round trip to a PSP.
	Delay time.Duration
	// DeclineAmount, when positive, declines any charge of exactly that
	// amount so failure paths stay reachable in demos and tests.
	DeclineAmount int64
	Clock         func() time.Time
	ReferenceFunc func() string
}

// SimulatedProvider approves every charge after a configured delay.
type SimulatedProvider struct {
	delay         time.Duration
	declineAmount int64
	now           func() time.Time
	newRef        func() string
}

// NewSimulatedProvider constructs the simulated PSP adapter.
func NewSimulatedProvider(cfg SimulatedProviderConfig) *SimulatedProvider {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	newRef := cfg.ReferenceFunc
	if newRef == nil {
		newRef = func() string { return "pay_" + ulid.Make().String() }
	}
	return &SimulatedProvider{
		delay:         cfg.Delay,
		declineAmount: cfg.DeclineAmount,
		now:           now,
		newRef:        newRef,
	}
}

// Charge waits out the configured delay and approves the charge.
func (p *SimulatedProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Amount < 0 {
		return ChargeResult{}, errors.New("payments: negative charge amount")
	}
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	if p.declineAmount > 0 && req.Amount == p.declineAmount {
		return ChargeResult{}, ErrChargeDeclined
	}
	return ChargeResult{
		Provider:  "simulated",
		Reference: p.newRef(),
		Status:    StatusSucceeded,
		Amount:    req.Amount,
		Currency:  req.Currency,
	}, nil
}
