// Package ratelimit implements the per-actor sliding-window rate limiter every
// message handler consults before mutating state. Each (actor, action kind)
// pair owns an independent bucket, so no actor can starve another's budget.
//
// Authenticated actors are keyed by player id and unauthenticated ones by
// source address (see PlayerKey and AddrKey), which keeps login and
// registration abuse from one address from being laundered through many
// fresh sessions.
package ratelimit

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Status classifies the outcome of a Check call.
type Status int

const (
	// Allowed means the action was admitted and recorded.
	Allowed Status = iota
	// Exceeded means the window budget was just exhausted; the bucket has
	// entered its cooldown.
	Exceeded
	// InCooldown means an earlier Exceeded put the bucket in cooldown and it
	// has not expired yet.
	InCooldown
)

// String returns a short name for the status, used in log fields.
func (s Status) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case Exceeded:
		return "exceeded"
	case InCooldown:
		return "in_cooldown"
	default:
		return "unknown"
	}
}

// Result is the outcome of one admission check. RetryAfter is how long the
// actor must wait: the full cooldown on Exceeded, the remaining cooldown on
// InCooldown, zero on Allowed.
type Result struct {
	Status     Status
	RetryAfter time.Duration
}

// Ok reports whether the action was admitted.
//
// Returns:
//   - true for Allowed, false otherwise
func (r Result) Ok() bool {
	return r.Status == Allowed
}

// bucket holds one (actor, action) pair's recent action timestamps and
// cooldown state. All access goes through mu.
type bucket struct {
	mu            sync.Mutex
	events        []time.Time
	cooldownUntil time.Time
}

// Limiter admits or rejects actions per actor and action kind. Buckets are
// created lazily on first check and evicted by go-cache's janitor once an
// actor has been idle past the stale timeout, which bounds memory across
// churned connections. Safe for concurrent use.
type Limiter struct {
	policies map[Action]Policy
	buckets  *cache.Cache
	now      func() time.Time
}

// NewLimiter creates a Limiter with the given per-action policies. Actions
// without a policy fall back to the ActionGeneric entry.
//
// Parameters:
//   - policies: Per-action admission policies (e.g. DefaultPolicies())
//   - staleTimeout: Idle duration after which an actor's buckets are evicted
//
// Returns:
//   - A new Limiter ready for concurrent use
func NewLimiter(policies map[Action]Policy, staleTimeout time.Duration) *Limiter {
	return &Limiter{
		policies: policies,
		buckets:  cache.New(staleTimeout, staleTimeout),
		now:      time.Now,
	}
}

// Check records an attempt for the actor to perform an action of the given
// kind and reports whether it is admitted. The sequence inside the bucket's
// critical section is: reject while in unexpired cooldown; prune timestamps
// older than the window; admit and record while under the budget; otherwise
// enter cooldown and reject.
//
// Parameters:
//   - actorKey: The actor's keyspace-qualified key (PlayerKey or AddrKey)
//   - action: The action kind being attempted
//
// Returns:
//   - The admission Result; callers drop rejected requests without a response
func (l *Limiter) Check(actorKey string, action Action) Result {
	policy, ok := l.policies[action]
	if !ok {
		policy = l.policies[ActionGeneric]
	}

	b := l.bucketFor(actorKey, action)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()

	if b.cooldownUntil.After(now) {
		return Result{Status: InCooldown, RetryAfter: b.cooldownUntil.Sub(now)}
	}

	cutoff := now.Add(-policy.Window)
	kept := b.events[:0]
	for _, ts := range b.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.events = kept

	if len(b.events) < policy.MaxActions {
		b.events = append(b.events, now)
		return Result{Status: Allowed}
	}

	b.cooldownUntil = now.Add(policy.Cooldown)
	return Result{Status: Exceeded, RetryAfter: policy.Cooldown}
}

// bucketFor returns the bucket for the pair, creating it if needed and
// refreshing its eviction deadline.
func (l *Limiter) bucketFor(actorKey string, action Action) *bucket {
	key := fmt.Sprintf("%d|%s", action, actorKey)

	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*bucket)
	}

	fresh := &bucket{}
	if err := l.buckets.Add(key, fresh, cache.DefaultExpiration); err != nil {
		// Lost the creation race; the stored bucket wins
		if v, ok := l.buckets.Get(key); ok {
			return v.(*bucket)
		}
	}

	return fresh
}

// Buckets returns the number of live buckets, for monitoring.
//
// Returns:
//   - The count of (actor, action) buckets not yet evicted
func (l *Limiter) Buckets() int {
	return l.buckets.ItemCount()
}

// PlayerKey returns the actor key for an authenticated player.
//
// Parameters:
//   - playerID: The player's id
//
// Returns:
//   - The keyspace-qualified actor key
func PlayerKey(playerID uint16) string {
	return fmt.Sprintf("p:%d", playerID)
}

// AddrKey returns the actor key for a not-yet-authenticated connection,
// keyed by source host so parallel sessions from one address share a budget.
//
// Parameters:
//   - remoteAddr: The connection's remote address ("host:port" or bare host)
//
// Returns:
//   - The keyspace-qualified actor key
func AddrKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	return "a:" + host
}
