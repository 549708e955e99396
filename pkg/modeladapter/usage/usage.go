// Package usage tracks token consumption across model calls.
package usage

import "sync"

// TokenCount is the token usage a provider reported for one model call.
type TokenCount struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total is input plus output.
func (tc TokenCount) Total() int { return tc.InputTokens + tc.OutputTokens }

// Add returns the element-wise sum of tc and other.
func (tc TokenCount) Add(other TokenCount) TokenCount {
	return TokenCount{
		InputTokens:  tc.InputTokens + other.InputTokens,
		OutputTokens: tc.OutputTokens + other.OutputTokens,
	}
}

// Tracker sums usage over the lifetime of an adapter. The zero value is
// ready to use and it is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	total TokenCount
	calls int
}

// Add records one model call.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	t.total = t.total.Add(tc)
	t.calls++
	t.mu.Unlock()
}

// Snapshot returns the running total and the number of calls recorded,
// read together.
func (t *Tracker) Snapshot() (TokenCount, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, t.calls
}

// Total returns the running total.
func (t *Tracker) Total() TokenCount {
	total, _ := t.Snapshot()
	return total
}

// Count returns the number of calls recorded.
func (t *Tracker) Count() int {
	_, n := t.Snapshot()
	return n
}
