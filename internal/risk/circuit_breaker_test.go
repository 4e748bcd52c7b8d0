package risk

import (
	"testing"
	"time"

	"github.com/amaslov/equitybot/internal/adapters/config"
)

func newTestBreaker(cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&config.RiskConfig{
		MaxConsecutiveLosses:   3,
		MaxDailyLossPercent:    5.0,
		CircuitBreakerCooldown: cooldown,
	})
}

func TestCircuitBreaker_ConsecutiveLosses(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	equity := 100000.0

	if err := cb.RecordResult(-100, equity); err != nil {
		t.Fatalf("Unexpected trip after 1 loss: %v", err)
	}
	if err := cb.RecordResult(-100, equity); err != nil {
		t.Fatalf("Unexpected trip after 2 losses: %v", err)
	}
	if cb.IsOpen() {
		t.Error("Breaker should still be closed after 2 losses")
	}

	if err := cb.RecordResult(-100, equity); err == nil {
		t.Error("Expected breaker to trip on 3rd consecutive loss")
	}
	if !cb.IsOpen() {
		t.Error("Breaker should be open")
	}
}

func TestCircuitBreaker_WinResetsStreak(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	equity := 100000.0

	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(250, equity)

	if err := cb.RecordResult(-100, equity); err != nil {
		t.Errorf("Streak should have reset after a win: %v", err)
	}
	if cb.IsOpen() {
		t.Error("Breaker should be closed")
	}
}

func TestCircuitBreaker_DailyLossLimit(t *testing.T) {
	cb := newTestBreaker(time.Hour)

	// 5% of $10000 equity is $500, one loss of $600 with
	// a win in between keeps the streak short but trips
	// the daily limit.
	equity := 10000.0
	_ = cb.RecordResult(-300, equity)
	_ = cb.RecordResult(50, equity)

	if err := cb.RecordResult(-300, equity); err == nil {
		t.Error("Expected daily loss limit to trip breaker")
	}
	if !cb.IsOpen() {
		t.Error("Breaker should be open")
	}
}

func TestCircuitBreaker_CooldownExpiry(t *testing.T) {
	cb := newTestBreaker(time.Millisecond)
	equity := 100000.0

	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(-100, equity)

	time.Sleep(5 * time.Millisecond)

	if cb.IsOpen() {
		t.Error("Breaker should report closed after cooldown")
	}
}

func TestCircuitBreaker_ManualControls(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	equity := 100000.0

	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(-100, equity)
	_ = cb.RecordResult(-100, equity)

	cb.Close()
	if cb.IsOpen() {
		t.Error("Breaker should be closed after Close")
	}

	status := cb.GetStatus()
	if status.ConsecutiveLosses != 0 {
		t.Errorf("Expected streak reset, got %d", status.ConsecutiveLosses)
	}

	cb.Reset()
	status = cb.GetStatus()
	if status.DailyLoss != 0 {
		t.Errorf("Expected daily loss reset, got %.2f", status.DailyLoss)
	}
}

func TestCircuitBreaker_Status(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	equity := 100000.0

	_ = cb.RecordResult(-100, equity)

	status := cb.GetStatus()
	if status.IsOpen {
		t.Error("Breaker should be closed")
	}
	if status.ConsecutiveLosses != 1 {
		t.Errorf("Expected 1 consecutive loss, got %d", status.ConsecutiveLosses)
	}
	if status.DailyLoss != 100 {
		t.Errorf("Expected daily loss 100, got %.2f", status.DailyLoss)
	}
}
