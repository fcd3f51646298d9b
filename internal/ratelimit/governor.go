// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package ratelimit is the single choke point every outgoing GitHub API
// call passes through before it is allowed on the wire: a concurrency
// ceiling, a per-endpoint token bucket, and a primary rate-limit wait.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Endpoint is one of the buckets the governor tracks independently. Each
// GitHub REST call is accounted against exactly one.
type Endpoint string

const (
	EndpointListPackages  Endpoint = "list_packages"
	EndpointGetPackage    Endpoint = "get_package"
	EndpointListVersions  Endpoint = "list_package_versions"
	EndpointDeleteVersion Endpoint = "delete_package_version"
)

// Cost in points for the two HTTP verbs the governor accounts for: a GET
// costs 1 point, a DELETE costs 5, matching GitHub's own secondary
// rate-limit weighting.
const (
	CostGet    = 1
	CostDelete = 5
)

const (
	defaultConcurrency = 100
	bucketSize         = 900
	refillPerSecond    = 15
)

// Governor is the concurrency + token-bucket + primary-limit gate. One
// Governor is shared by every call the Registry Client makes during a run.
type Governor struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	buckets map[Endpoint]*rate.Limiter
	primary primaryLimit
}

// primaryLimit mirrors the `x-ratelimit-remaining`/`x-ratelimit-reset`
// headers GitHub returns on every response.
type primaryLimit struct {
	remaining int
	resetAt   time.Time
	known     bool
}

// New builds a Governor with the given concurrency ceiling. concurrency <= 0
// falls back to a default of 100 in-flight requests.
func New(concurrency int) *Governor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Governor{
		sem:     semaphore.NewWeighted(int64(concurrency)),
		buckets: make(map[Endpoint]*rate.Limiter),
	}
}

func (g *Governor) bucket(e Endpoint) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.buckets[e]
	if !ok {
		b = rate.NewLimiter(rate.Limit(refillPerSecond), bucketSize)
		g.buckets[e] = b
	}
	return b
}

// Acquire takes a concurrency permit, deducts points from the endpoint's
// bucket (blocking for refill if needed), then blocks on the primary limit
// if it is exhausted. The returned release func must be called exactly
// once, after the HTTP call completes, regardless of outcome.
func (g *Governor) Acquire(ctx context.Context, e Endpoint, points int) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if err := g.bucket(e).WaitN(ctx, points); err != nil {
		g.sem.Release(1)
		return nil, err
	}

	if err := g.waitForPrimaryReset(ctx); err != nil {
		g.sem.Release(1)
		return nil, err
	}

	return func() { g.sem.Release(1) }, nil
}

func (g *Governor) waitForPrimaryReset(ctx context.Context) error {
	g.mu.Lock()
	p := g.primary
	g.mu.Unlock()

	if !p.known || p.remaining > 0 {
		return nil
	}

	wait := time.Until(p.resetAt)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdatePrimary records the primary rate-limit state from a response's
// x-ratelimit-remaining/x-ratelimit-reset headers. reset is a Unix
// timestamp, the form GitHub sends.
func (g *Governor) UpdatePrimary(remaining int, resetUnix int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primary = primaryLimit{
		remaining: remaining,
		resetAt:   time.Unix(resetUnix, 0),
		known:     true,
	}
}
