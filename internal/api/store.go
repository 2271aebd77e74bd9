// Package api exposes the digest-browsing HTTP API and a live alert feed
// over a WebSocket, for a dashboard to poll or subscribe to instead of
// reading the blob store directly.
//
// Grounded on api/internal/storage/storage.go's in-memory
// mutex-guarded slice-plus-subscriber-map Storage: the same shape here
// holds digests instead of flows, and AlertSubscriber's filtered-channel
// fan-out becomes DigestStore's unfiltered one (a dashboard watching the
// daily feed has no per-connection filter dimension the way a live flow
// tail does).
package api

import (
	"sync"
	"time"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// maxDigests bounds how much history the in-memory store retains, mirroring
// storage.Storage's maxAlerts/maxFlows retention caps.
const maxDigests = 365

// AlertSubscriber receives every alert from newly stored digests as they
// arrive, until Unsubscribe closes Channel.
type AlertSubscriber struct {
	ID      string
	Channel chan model.Alert
}

// DigestStore holds the run history an API process has observed and fans
// new alerts out to live subscribers.
type DigestStore struct {
	mu      sync.RWMutex
	digests []*model.Digest

	subsMu sync.RWMutex
	subs   map[*AlertSubscriber]bool
}

func NewDigestStore() *DigestStore {
	return &DigestStore{
		subs: make(map[*AlertSubscriber]bool),
	}
}

// Add stores d and pushes its alerts to every live subscriber.
func (s *DigestStore) Add(d *model.Digest) {
	s.mu.Lock()
	s.digests = append(s.digests, d)
	if len(s.digests) > maxDigests {
		s.digests = s.digests[len(s.digests)-maxDigests:]
	}
	s.mu.Unlock()

	s.notify(d)
}

// List returns digests newest-first, capped to limit (0 means no cap).
func (s *DigestStore) List(limit int) []*model.Digest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Digest, len(s.digests))
	for i, d := range s.digests {
		out[len(s.digests)-1-i] = d
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns the digest for referenceDate, or ok=false.
func (s *DigestStore) Get(referenceDate time.Time) (*model.Digest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.digests) - 1; i >= 0; i-- {
		if s.digests[i].ReferenceDate.Equal(referenceDate) {
			return s.digests[i], true
		}
	}
	return nil, false
}

func (s *DigestStore) Subscribe(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[sub] = true
}

func (s *DigestStore) Unsubscribe(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.subs[sub] {
		delete(s.subs, sub)
		close(sub.Channel)
	}
}

func (s *DigestStore) notify(d *model.Digest) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, a := range d.Alerts {
		for sub := range s.subs {
			select {
			case sub.Channel <- a:
			default:
				// subscriber's buffer is full, drop rather than block the run.
			}
		}
	}
}
