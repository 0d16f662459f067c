package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/srishtiii28/alphascan/internal/llm"
)

// flakyProvider fails a fixed number of times before succeeding
type flakyProvider struct {
	failures int
	calls    int
}

func (p *flakyProvider) Name() string         { return "flaky" }
func (p *flakyProvider) DefaultModel() string { return "test-model" }
func (p *flakyProvider) IsConfigured() bool   { return true }

func (p *flakyProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("upstream error")
	}
	return "ok", nil
}

func TestClient_RetriesUpToLimit(t *testing.T) {
	provider := &flakyProvider{failures: 2}
	router := llm.NewRouter("flaky")
	router.RegisterProvider(provider)

	client := llm.NewClient(router, 3)
	out, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("got %q, want ok", out)
	}
	if provider.calls != 3 {
		t.Errorf("got %d calls, want 3", provider.calls)
	}
}

func TestClient_FailsAfterRetriesExhausted(t *testing.T) {
	provider := &flakyProvider{failures: 5}
	router := llm.NewRouter("flaky")
	router.RegisterProvider(provider)

	client := llm.NewClient(router, 3)
	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if provider.calls != 3 {
		t.Errorf("got %d calls, want 3", provider.calls)
	}
}

func TestClient_StopsOnCancelledContext(t *testing.T) {
	provider := &flakyProvider{failures: 5}
	router := llm.NewRouter("flaky")
	router.RegisterProvider(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llm.NewClient(router, 3)
	if _, err := client.Complete(ctx, "prompt"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("got %d calls, want 0", provider.calls)
	}
}
