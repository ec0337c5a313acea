package llm

import (
	"context"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/errors"
)

// stubService returns canned responses and records call counts
type stubService struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubService) Complete(_ context.Context, _ Request) (string, error) {
	i := s.calls
	s.calls++

	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}

	return s.responses[i], s.errs[i]
}

func TestManagerCompleteSuccess(t *testing.T) {
	stub := &stubService{
		responses: []string{"SELECT 1;"},
		errs:      []error{nil},
	}

	manager := NewManager(stub, ManagerConfig{RetryAttempts: 2, RetryDelay: time.Millisecond})

	got, err := manager.Complete(context.Background(), Request{Prompt: "test"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got != "SELECT 1;" {
		t.Errorf("Expected SELECT 1;, got %q", got)
	}

	if stub.calls != 1 {
		t.Errorf("Expected 1 call, got %d", stub.calls)
	}
}

func TestManagerCompleteRetriesThenSucceeds(t *testing.T) {
	stub := &stubService{
		responses: []string{"", "SELECT 2;"},
		errs:      []error{errors.New(errors.ErrTypeGeneration, "transient"), nil},
	}

	manager := NewManager(stub, ManagerConfig{RetryAttempts: 2, RetryDelay: time.Millisecond})

	got, err := manager.Complete(context.Background(), Request{Prompt: "test"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got != "SELECT 2;" {
		t.Errorf("Expected SELECT 2;, got %q", got)
	}

	if stub.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", stub.calls)
	}
}

func TestManagerCompleteExhaustsRetries(t *testing.T) {
	stub := &stubService{
		responses: []string{""},
		errs:      []error{errors.New(errors.ErrTypeGeneration, "down")},
	}

	manager := NewManager(stub, ManagerConfig{RetryAttempts: 1, RetryDelay: time.Millisecond})

	_, err := manager.Complete(context.Background(), Request{Prompt: "test"})
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}

	if !errors.IsType(err, errors.ErrTypeGeneration) {
		t.Errorf("Expected generation error, got %v", errors.GetType(err))
	}

	if stub.calls != 2 {
		t.Errorf("Expected 2 calls (initial + 1 retry), got %d", stub.calls)
	}
}

func TestManagerCompleteRespectsCancellation(t *testing.T) {
	stub := &stubService{
		responses: []string{""},
		errs:      []error{errors.New(errors.ErrTypeGeneration, "down")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manager := NewManager(stub, ManagerConfig{RetryAttempts: 5, RetryDelay: time.Minute})

	_, err := manager.Complete(ctx, Request{Prompt: "test"})
	if err == nil {
		t.Fatal("Expected error on canceled context")
	}

	if stub.calls > 1 {
		t.Errorf("Expected no retries after cancellation, got %d calls", stub.calls)
	}
}
