package topic

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 16

// Registry is the process-global mapping from topic filter to the set of
// subscribed client IDs (spec.md §4.4). Keyed lookups (subscribe/unsubscribe
// for one filter) only need to lock the shard that filter hashes to; match
// scans every shard, since any filter could match the published topic.
//
// The flat mapping is spec-authoritative; this sharding is purely a
// concurrency refinement spec.md §5 explicitly permits ("finer-grained
// per-filter locking is permitted provided match returns a consistent
// snapshot with respect to a concurrent subscribe/unsubscribe").
type Registry struct {
	shards [shardCount]registryShard
}

type registryShard struct {
	mu      sync.RWMutex
	filters map[string]map[string]struct{}
}

// NewRegistry constructs an empty subscription registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].filters = make(map[string]map[string]struct{})
	}
	return r
}

func shardFor(filter string) uint64 {
	return xxhash.Sum64String(filter) % shardCount
}

// Subscribe adds clientID to filter's subscriber set.
func (r *Registry) Subscribe(filter, clientID string) {
	s := &r.shards[shardFor(filter)]
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.filters[filter]
	if !ok {
		subs = make(map[string]struct{})
		s.filters[filter] = subs
	}
	subs[clientID] = struct{}{}
}

// Unsubscribe removes clientID from filter's subscriber set, pruning the
// filter entirely once its set is empty.
func (r *Registry) Unsubscribe(filter, clientID string) {
	s := &r.shards[shardFor(filter)]
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.filters[filter]
	if !ok {
		return
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(s.filters, filter)
	}
}

// UnsubscribeAll removes clientID from every filter it is currently
// subscribed to, given the explicit filter set (the session, not the
// registry, is the source of truth for which filters a client holds —
// spec.md §3's Session carries "set of subscribed topic_filters").
func (r *Registry) UnsubscribeAll(filters []string, clientID string) {
	for _, f := range filters {
		r.Unsubscribe(f, clientID)
	}
}

// Match returns the deduplicated set of client IDs subscribed to any filter
// that matches topic.
func (r *Registry) Match(topic string) []string {
	seen := make(map[string]struct{})
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for filter, subs := range s.filters {
			if !matchTopicFilter(filter, topic) {
				continue
			}
			for clientID := range subs {
				seen[clientID] = struct{}{}
			}
		}
		s.mu.RUnlock()
	}

	result := make([]string, 0, len(seen))
	for clientID := range seen {
		result = append(result, clientID)
	}
	return result
}

// Count returns the total number of distinct (filter, client_id) entries,
// used by the broker's subscriptions gauge.
func (r *Registry) Count() int {
	total := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, subs := range s.filters {
			total += len(subs)
		}
		s.mu.RUnlock()
	}
	return total
}
