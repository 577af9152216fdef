// Package policy enforces operational limits at the gateway, in front of
// the engine's own pricing guards.
package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
)

// Config defines gateway limits. Amounts are raw base units of the input
// mint.
type Config struct {
	// Per-request limit
	MaxSwapAmount uint64

	// Rolling 24h inbound volume per mint
	DailyMintVolume uint64

	// Mint whitelist (empty = allow all)
	AllowedMints []solana.PublicKey
}

func DefaultConfig() Config {
	return Config{
		MaxSwapAmount:   constants.DefaultMaxSwapAmount,
		DailyMintVolume: constants.DefaultDailyMintVolume,
	}
}

// CheckResult explains a policy decision.
type CheckResult struct {
	Allowed        bool   `json:"allowed"`
	Reason         string `json:"reason,omitempty"`
	DailyUsed      uint64 `json:"daily_used"`
	DailyRemaining uint64 `json:"daily_remaining"`
}

// Limiter applies Config against a rolling usage window.
type Limiter struct {
	cfg     Config
	tracker *volumeTracker
}

func NewLimiter(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, tracker: newVolumeTracker(constants.DailyWindowDuration)}
}

// CheckSwap validates a swap request before it reaches the engine.
func (l *Limiter) CheckSwap(mintIn solana.PublicKey, amountIn uint64) *CheckResult {
	used := l.tracker.usage(mintIn)
	res := &CheckResult{Allowed: true, DailyUsed: used}
	if l.cfg.DailyMintVolume > used {
		res.DailyRemaining = l.cfg.DailyMintVolume - used
	}

	if l.cfg.MaxSwapAmount > 0 && amountIn > l.cfg.MaxSwapAmount {
		res.Allowed = false
		res.Reason = fmt.Sprintf("amount %d exceeds per-swap limit %d", amountIn, l.cfg.MaxSwapAmount)
		return res
	}

	if len(l.cfg.AllowedMints) > 0 && !l.mintAllowed(mintIn) {
		res.Allowed = false
		res.Reason = fmt.Sprintf("mint %s is not whitelisted", mintIn)
		return res
	}

	if l.cfg.DailyMintVolume > 0 && used+amountIn > l.cfg.DailyMintVolume {
		res.Allowed = false
		res.Reason = fmt.Sprintf("daily volume exceeded for %s: used %d + %d > %d",
			mintIn, used, amountIn, l.cfg.DailyMintVolume)
		return res
	}

	return res
}

// RecordSwap counts a committed swap against the rolling window.
func (l *Limiter) RecordSwap(mintIn solana.PublicKey, amountIn uint64) {
	l.tracker.record(mintIn, amountIn)
}

func (l *Limiter) mintAllowed(mint solana.PublicKey) bool {
	for _, m := range l.cfg.AllowedMints {
		if m.Equals(mint) {
			return true
		}
	}
	return false
}

type volumeRecord struct {
	at     time.Time
	amount uint64
}

// volumeTracker keeps per-mint records inside a rolling window.
type volumeTracker struct {
	mu      sync.Mutex
	window  time.Duration
	records map[solana.PublicKey][]volumeRecord
}

func newVolumeTracker(window time.Duration) *volumeTracker {
	return &volumeTracker{
		window:  window,
		records: make(map[solana.PublicKey][]volumeRecord),
	}
}

func (t *volumeTracker) record(mint solana.PublicKey, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[mint] = append(t.prune(mint), volumeRecord{at: time.Now(), amount: amount})
}

func (t *volumeTracker) usage(mint solana.PublicKey) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.prune(mint)
	t.records[mint] = kept

	var total uint64
	for _, r := range kept {
		total += r.amount
	}
	return total
}

func (t *volumeTracker) prune(mint solana.PublicKey) []volumeRecord {
	cutoff := time.Now().Add(-t.window)
	kept := make([]volumeRecord, 0, len(t.records[mint]))
	for _, r := range t.records[mint] {
		if r.at.After(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}
