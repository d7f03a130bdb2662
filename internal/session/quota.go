package session

import "sync"

// Quota is how many battles an opponent may still start before the next reset
type Quota struct {
	Remaining int
	Original  int
}

// QuotaBook tracks per-opponent battle quotas. It is shared with the hourly reset job,
// which only ever calls ResetAll.
type QuotaBook struct {
	mu      sync.Mutex
	normal  int
	vip     int
	entries map[string]*Quota
}

func NewQuotaBook(normal, vip int) *QuotaBook {
	return &QuotaBook{
		normal:  normal,
		vip:     vip,
		entries: make(map[string]*Quota),
	}
}

// Seed creates the record for uid on first encounter and returns what is left
func (q *QuotaBook) Seed(uid string, vip bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[uid]
	if !ok {
		n := q.normal
		if vip {
			n = q.vip
		}
		entry = &Quota{Remaining: n, Original: n}
		q.entries[uid] = entry
	}
	return entry.Remaining
}

// Remaining reports the quota left for uid; unknown opponents report false
func (q *QuotaBook) Remaining(uid string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[uid]
	if !ok {
		return 0, false
	}
	return entry.Remaining, true
}

// Consume takes one battle from uid's quota
func (q *QuotaBook) Consume(uid string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[uid]
	if !ok {
		return 0
	}
	entry.Remaining--
	return entry.Remaining
}

// ResetAll restores every opponent's quota to its original value
func (q *QuotaBook) ResetAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range q.entries {
		entry.Remaining = entry.Original
	}
}

func (q *QuotaBook) Snapshot() map[string]Quota {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]Quota, len(q.entries))
	for uid, entry := range q.entries {
		out[uid] = *entry
	}
	return out
}
