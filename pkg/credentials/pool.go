package credentials

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultFailureThreshold is the number of consecutive errors after which a
// credential is quarantined. A success or a daily reset restores it.
const DefaultFailureThreshold = 5

// PoolConfig configures a credential pool.
type PoolConfig struct {
	// Backend is the owning back-end's name, used in leases and logs.
	Backend string

	// Secrets are the raw API keys in pool order.
	Secrets []string

	// DailyLimit is the per-credential daily capacity ceiling.
	// Default: 1000
	DailyLimit int

	// FailureThreshold is the consecutive-error count that quarantines a
	// credential. Default: 5
	FailureThreshold int
}

// Pool owns all credentials for one back-end.
//
// Every exported method takes the pool mutex, so concurrent selection,
// bookkeeping, and resets never interleave on a credential's counters.
// Pools for different back-ends share no state: progress on one never
// blocks another.
type Pool struct {
	mu        sync.Mutex
	backend   string
	creds     []*Credential
	threshold int
	logger    *slog.Logger

	// nowFunc is replaceable in tests to control LRU ordering.
	nowFunc func() time.Time
}

// NewPool creates a pool from the given configuration.
func NewPool(cfg PoolConfig) *Pool {
	limit := cfg.DailyLimit
	if limit <= 0 {
		limit = 1000
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}

	creds := make([]*Credential, len(cfg.Secrets))
	for i, secret := range cfg.Secrets {
		creds[i] = &Credential{
			secret:     secret,
			index:      i,
			available:  true,
			dailyLimit: limit,
		}
	}

	return &Pool{
		backend:   cfg.Backend,
		creds:     creds,
		threshold: threshold,
		logger:    slog.Default().With("component", "credentials.pool", "backend", cfg.Backend),
		nowFunc:   time.Now,
	}
}

// Next selects the best credential for the next attempt, or returns false
// when no credential is eligible (all quarantined or all at capacity).
//
// Selection order among eligible credentials: most remaining daily capacity
// first, then lowest request count, then least recently used, then lowest
// index. The selected credential's lastUsed is stamped at selection time so
// that equal-capacity credentials rotate round-robin even between marks.
func (p *Pool) Next() (*Lease, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var candidates []*Credential
	for _, c := range p.creds {
		if c.eligible() {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.remaining() != b.remaining() {
			return a.remaining() > b.remaining()
		}
		if a.requestCount != b.requestCount {
			return a.requestCount < b.requestCount
		}
		if !a.lastUsed.Equal(b.lastUsed) {
			return a.lastUsed.Before(b.lastUsed)
		}
		return a.index < b.index
	})

	chosen := candidates[0]
	chosen.lastUsed = p.nowFunc()

	return &Lease{
		Backend:     p.backend,
		Index:       chosen.index,
		Secret:      chosen.secret,
		Fingerprint: Fingerprint(chosen.secret),
	}, true
}

// MarkSuccess records a successful attempt for the credential at index.
// It resets the error count, increments the request count, and restores
// availability. Out-of-range indexes are ignored.
func (p *Pool) MarkSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.credAt(index)
	if c == nil {
		return
	}

	c.errorCount = 0
	c.requestCount++
	c.lastUsed = p.nowFunc()
	c.lastError = ""
	c.available = true
}

// MarkError records a failed attempt for the credential at index.
//
// The error and request counts are incremented and the message recorded.
// A fatal error (permanently rejected key) quarantines the credential
// immediately; otherwise it is quarantined once the consecutive-error count
// reaches the pool's failure threshold.
func (p *Pool) MarkError(index int, message string, fatal bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.credAt(index)
	if c == nil {
		return
	}

	c.errorCount++
	c.requestCount++
	c.lastUsed = p.nowFunc()
	c.lastError = message

	if fatal {
		c.available = false
		p.logger.Warn("credential quarantined by fatal error",
			"index", index,
			"fingerprint", Fingerprint(c.secret),
			"error", message,
		)
		return
	}

	if c.errorCount >= p.threshold {
		c.available = false
		p.logger.Warn("credential quarantined by error threshold",
			"index", index,
			"fingerprint", Fingerprint(c.secret),
			"error_count", c.errorCount,
			"threshold", p.threshold,
		)
	}
}

// Reset restores every credential to its daily-boundary state: counters
// zeroed, last error cleared, availability restored. It runs in the same
// critical section as the marks, so a reset never races an in-flight
// bookkeeping call.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.creds {
		c.requestCount = 0
		c.errorCount = 0
		c.lastError = ""
		c.available = true
	}

	p.logger.Info("credential pool reset", "credentials", len(p.creds))
}

// Rotate replaces credential secrets in place for key rotation without a
// restart. Counters and availability are preserved; only the secret string
// changes. A length mismatch replaces the overlapping prefix and logs a
// warning: rotation never adds or removes credentials.
func (p *Pool) Rotate(secrets []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(secrets) != len(p.creds) {
		p.logger.Warn("rotation count mismatch, replacing overlapping credentials only",
			"pool_size", len(p.creds),
			"rotated", len(secrets),
		)
	}

	n := len(secrets)
	if n > len(p.creds) {
		n = len(p.creds)
	}
	for i := 0; i < n; i++ {
		if p.creds[i].secret != secrets[i] {
			p.logger.Info("credential rotated",
				"index", i,
				"fingerprint", Fingerprint(secrets[i]),
			)
			p.creds[i].secret = secrets[i]
		}
	}
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Backend returns the owning back-end's name.
func (p *Pool) Backend() string {
	return p.backend
}

// credAt returns the credential at index, or nil when out of range.
// Caller must hold the mutex.
func (p *Pool) credAt(index int) *Credential {
	if index < 0 || index >= len(p.creds) {
		p.logger.Warn("mark for unknown credential index", "index", index)
		return nil
	}
	return p.creds[index]
}
