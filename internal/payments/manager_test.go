package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	lastReq ChargeRequest
	result  ChargeResult
	err     error
}

func (f *fakeProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func TestManagerChargeRoutesByMethod(t *testing.T) {
	ctx := context.Background()
	card := &fakeProvider{result: ChargeResult{Reference: "pay_card", Status: StatusSucceeded}}
	paypal := &fakeProvider{result: ChargeResult{Reference: "pay_paypal", Status: StatusSucceeded}}

	mgr, err := NewManager(map[string]Provider{
		"card":   card,
		"paypal": paypal,
	}, WithDefaultProvider("card"))
	if err != nil {
		t.Fatalf("unexpected error constructing manager: %v", err)
	}

	result, err := mgr.Charge(ctx, ChargeRequest{Method: "PayPal", Amount: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reference != "pay_paypal" {
		t.Fatalf("expected paypal provider, got %q", result.Reference)
	}
	if result.Provider != "paypal" {
		t.Fatalf("expected provider name filled in, got %q", result.Provider)
	}
}

func TestManagerChargeFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	sim := &fakeProvider{result: ChargeResult{Reference: "pay_sim", Status: StatusSucceeded}}

	mgr, err := NewManager(map[string]Provider{"simulated": sim})
	if err != nil {
		t.Fatalf("unexpected error constructing manager: %v", err)
	}

	result, err := mgr.Charge(ctx, ChargeRequest{Method: "card", Amount: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reference != "pay_sim" {
		t.Fatalf("expected simulated provider, got %q", result.Reference)
	}
	if sim.lastReq.Method != "card" {
		t.Fatalf("expected original method preserved, got %q", sim.lastReq.Method)
	}
}

func TestManagerChargeUnsupportedProvider(t *testing.T) {
	mgr, err := NewManager(map[string]Provider{"paypal": &fakeProvider{}}, WithDefaultProvider("missing"))
	if err != nil {
		t.Fatalf("unexpected error constructing manager: %v", err)
	}

	_, err = mgr.Charge(context.Background(), ChargeRequest{Method: "card"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestSimulatedProviderChargeSucceeds(t *testing.T) {
	provider := NewSimulatedProvider(SimulatedProviderConfig{
		ReferenceFunc: func() string { return "pay_fixed" },
	})

	result, err := provider.Charge(context.Background(), ChargeRequest{Amount: 4999, Currency: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %q", result.Status)
	}
	if result.Reference != "pay_fixed" {
		t.Fatalf("unexpected reference %q", result.Reference)
	}
	if result.Amount != 4999 || result.Currency != "USD" {
		t.Fatalf("expected amount echoed back, got %+v", result)
	}
}

func TestSimulatedProviderDeclineAmount(t *testing.T) {
	provider := NewSimulatedProvider(SimulatedProviderConfig{DeclineAmount: 666})

	_, err := provider.Charge(context.Background(), ChargeRequest{Amount: 666})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}
}
