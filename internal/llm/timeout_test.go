package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingProvider waits for the context to expire.
type blockingProvider struct{}

func (b *blockingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingProvider) ModelID() string { return "blocking" }

func TestTimeout_CancelsSlowCall(t *testing.T) {
	p := WithTimeout(&blockingProvider{}, 5*time.Millisecond)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, deadline did not fire", elapsed)
	}
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	inner := NewMockProvider()
	if p := WithTimeout(inner, 0); p != inner {
		t.Error("zero timeout should return the provider unchanged")
	}
}

func TestTimeout_FastCallUnaffected(t *testing.T) {
	inner := NewMockProvider()
	inner.AddResponse(MockResponse{Content: []byte(`{"ok": true}`)})

	p := WithTimeout(inner, time.Second)
	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(resp.Content) != `{"ok": true}` {
		t.Errorf("content = %s", resp.Content)
	}
}
