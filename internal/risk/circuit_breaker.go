package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
)

// CircuitBreaker halts trading when loss thresholds are exceeded
type CircuitBreaker struct {
	mu                   sync.RWMutex
	isOpen               bool
	consecutiveLosses    int
	maxConsecutiveLosses int
	dailyLoss            float64
	maxDailyLoss         float64
	cooldownDuration     time.Duration
	openedAt             time.Time
	lastResetDate        time.Time
}

// NewCircuitBreaker creates new circuit breaker
func NewCircuitBreaker(cfg *config.RiskConfig) *CircuitBreaker {
	return &CircuitBreaker{
		maxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		maxDailyLoss:         cfg.MaxDailyLossPercent,
		cooldownDuration:     cfg.CircuitBreakerCooldown,
		lastResetDate:        time.Now(),
	}
}

// IsOpen returns true if trading is currently disabled
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.isOpen && time.Since(cb.openedAt) >= cb.cooldownDuration {
		return false // cooldown expired
	}

	return cb.isOpen
}

// RecordResult records a realized trade result and updates state.
// Returns an error when the result tripped the breaker.
func (cb *CircuitBreaker) RecordResult(pnl, equity float64) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !isSameDay(cb.lastResetDate, time.Now()) {
		cb.dailyLoss = 0
		cb.lastResetDate = time.Now()
		logger.Info("circuit breaker: daily counters reset")
	}

	if pnl < 0 {
		cb.consecutiveLosses++
		cb.dailyLoss += -pnl

		logger.Warn("trade loss recorded",
			zap.Float64("pnl", pnl),
			zap.Int("consecutive_losses", cb.consecutiveLosses),
			zap.Float64("daily_loss", cb.dailyLoss),
		)
	} else {
		cb.consecutiveLosses = 0
	}

	if cb.consecutiveLosses >= cb.maxConsecutiveLosses {
		return cb.open(fmt.Sprintf("max consecutive losses reached (%d)", cb.consecutiveLosses))
	}

	if equity > 0 {
		dailyLossPercent := (cb.dailyLoss / equity) * 100
		if dailyLossPercent >= cb.maxDailyLoss {
			return cb.open(fmt.Sprintf("max daily loss reached (%.2f%%)", dailyLossPercent))
		}
	}

	return nil
}

// open opens the circuit breaker, caller holds the lock
func (cb *CircuitBreaker) open(reason string) error {
	if cb.isOpen {
		return nil
	}

	cb.isOpen = true
	cb.openedAt = time.Now()

	logger.Error("CIRCUIT BREAKER OPENED",
		zap.String("reason", reason),
		zap.Time("opened_at", cb.openedAt),
		zap.Duration("cooldown", cb.cooldownDuration),
	)

	return fmt.Errorf("circuit breaker opened: %s", reason)
}

// Close manually closes the circuit breaker
func (cb *CircuitBreaker) Close() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return
	}

	cb.isOpen = false
	cb.consecutiveLosses = 0

	logger.Info("circuit breaker manually closed")
}

// Reset resets all counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.isOpen = false
	cb.consecutiveLosses = 0
	cb.dailyLoss = 0
	cb.lastResetDate = time.Now()

	logger.Info("circuit breaker reset")
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() CircuitBreakerStatus {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	status := CircuitBreakerStatus{
		IsOpen:            cb.isOpen,
		ConsecutiveLosses: cb.consecutiveLosses,
		DailyLoss:         cb.dailyLoss,
		OpenedAt:          cb.openedAt,
	}

	if cb.isOpen {
		remaining := cb.cooldownDuration - time.Since(cb.openedAt)
		if remaining > 0 {
			status.CooldownRemaining = remaining
		}
	}

	return status
}

// CircuitBreakerStatus represents current status
type CircuitBreakerStatus struct {
	IsOpen            bool          `json:"is_open"`
	ConsecutiveLosses int           `json:"consecutive_losses"`
	DailyLoss         float64       `json:"daily_loss"`
	OpenedAt          time.Time     `json:"opened_at,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining,omitempty"`
}

// isSameDay checks if two timestamps are on the same calendar day
func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
