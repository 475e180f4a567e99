package credentials

import "time"

// CredentialSnapshot is a read-only view of one credential's live state.
// The secret appears only as a fingerprint.
type CredentialSnapshot struct {
	Index        int       `json:"index"`
	Fingerprint  string    `json:"fingerprint"`
	RequestCount int       `json:"request_count"`
	ErrorCount   int       `json:"error_count"`
	LastUsed     time.Time `json:"last_used"`
	LastError    string    `json:"last_error,omitempty"`
	Available    bool      `json:"available"`
	DailyLimit   int       `json:"daily_limit"`
}

// PoolSnapshot is a read-only view of one pool's aggregate state.
type PoolSnapshot struct {
	Backend       string               `json:"backend"`
	TotalKeys     int                  `json:"total_keys"`
	AvailableKeys int                  `json:"available_keys"`
	TotalCapacity int                  `json:"total_capacity"`
	UsedToday     int                  `json:"used_today"`
	Remaining     int                  `json:"remaining"`
	Credentials   []CredentialSnapshot `json:"credentials"`
}

// Snapshot returns a point-in-time copy of the pool's state. The copy is
// detached: reading it requires no lock and mutating it has no effect on
// the pool.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := PoolSnapshot{
		Backend:     p.backend,
		TotalKeys:   len(p.creds),
		Credentials: make([]CredentialSnapshot, 0, len(p.creds)),
	}

	for _, c := range p.creds {
		snap.TotalCapacity += c.dailyLimit
		snap.UsedToday += c.requestCount
		snap.Remaining += c.remaining()
		if c.eligible() {
			snap.AvailableKeys++
		}

		snap.Credentials = append(snap.Credentials, CredentialSnapshot{
			Index:        c.index,
			Fingerprint:  Fingerprint(c.secret),
			RequestCount: c.requestCount,
			ErrorCount:   c.errorCount,
			LastUsed:     c.lastUsed,
			LastError:    c.lastError,
			Available:    c.available,
			DailyLimit:   c.dailyLimit,
		})
	}

	return snap
}

// RemainingCapacity returns the pool's aggregate unused daily capacity
// across eligible credentials. Quarantined credentials contribute nothing.
func (p *Pool) RemainingCapacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, c := range p.creds {
		if c.eligible() {
			total += c.remaining()
		}
	}
	return total
}
