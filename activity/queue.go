package activity

import (
	"sort"
	"time"
)

// expiryQueue holds the pending unmark time of every active mark.
// Scheduling a key that is already present overwrites its expiry, so a key is
// never pending more than once.
type expiryQueue struct {
	at map[MarkKey]time.Time
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{at: make(map[MarkKey]time.Time)}
}

func (q *expiryQueue) schedule(key MarkKey, at time.Time) {
	q.at[key] = at
}

func (q *expiryQueue) expires(key MarkKey) (time.Time, bool) {
	t, ok := q.at[key]
	return t, ok
}

func (q *expiryQueue) remove(key MarkKey) {
	delete(q.at, key)
}

func (q *expiryQueue) len() int {
	return len(q.at)
}

// due returns the keys expiring at or before now without removing them,
// ordered by expiry then register then kind
func (q *expiryQueue) due(now time.Time) []MarkKey {
	var keys []MarkKey
	for k, t := range q.at {
		if !t.After(now) {
			keys = append(keys, k)
		}
	}
	q.sort(keys)
	return keys
}

// snapshot returns every pending mark in the same order as due
func (q *expiryQueue) snapshot() []Mark {
	keys := make([]MarkKey, 0, len(q.at))
	for k := range q.at {
		keys = append(keys, k)
	}
	q.sort(keys)
	out := make([]Mark, len(keys))
	for i, k := range keys {
		out[i] = Mark{Key: k, Expires: q.at[k]}
	}
	return out
}

func (q *expiryQueue) sort(keys []MarkKey) {
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := q.at[keys[i]], q.at[keys[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		if keys[i].Register != keys[j].Register {
			return keys[i].Register < keys[j].Register
		}
		return keys[i].Kind < keys[j].Kind
	})
}
