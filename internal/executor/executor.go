// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package executor fans selector decisions out across the Rate Governor
// concurrently, through a bounded worker pool.
package executor

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"

	"github.com/snok/container-retention-policy/internal/registry"
	"github.com/snok/container-retention-policy/internal/selector"
)

// Deleter is the subset of the Registry Client the executor needs, kept
// narrow so tests can substitute a stub without a real HTTP client.
type Deleter interface {
	DeletePackageVersion(ctx context.Context, account registry.Account, pkg registry.Package, versionID int64) error
}

// Result is one candidate's outcome.
type Result struct {
	Candidate selector.DeletionCandidate
	Err       error
}

// Run executes every candidate's deletion, respecting dryRun: in dry-run
// mode it logs the intended deletion instead of calling delete. Pool size
// scales with GOMAXPROCS, capped by concurrencyCeiling so the pool never
// outruns the Rate Governor's own semaphore.
func Run(ctx context.Context, deleter Deleter, account registry.Account, pkg registry.Package, candidates []selector.DeletionCandidate, dryRun bool, concurrencyCeiling int, log *zerolog.Logger) []Result {
	if len(candidates) == 0 {
		return nil
	}

	poolSize := runtime.GOMAXPROCS(0) * 4
	if concurrencyCeiling > 0 && concurrencyCeiling < poolSize {
		poolSize = concurrencyCeiling
	}
	if poolSize < 1 {
		poolSize = 1
	}

	ordered := preferTaggedFirst(candidates)

	pool := pond.NewPool(poolSize)
	group := pool.NewGroup()

	results := make([]Result, len(ordered))
	var mu sync.Mutex

	for i, candidate := range ordered {
		i, candidate := i, candidate
		group.SubmitErr(func() error {
			var err error
			if dryRun {
				if log != nil {
					log.Info().
						Str("package", candidate.PackageName).
						Int64("version_id", candidate.VersionID).
						Str("digest", candidate.Digest).
						Str("label", candidate.Label).
						Bool("dry_run", true).
						Msg("would delete")
				}
			} else {
				err = deleter.DeletePackageVersion(ctx, account, pkg, candidate.VersionID)
				if log != nil {
					ev := log.Info()
					if err != nil {
						ev = log.Warn()
					}
					ev.Str("package", candidate.PackageName).
						Int64("version_id", candidate.VersionID).
						Str("digest", candidate.Digest).
						Str("label", candidate.Label).
						AnErr("error", err).
						Msg("delete attempted")
				}
			}

			mu.Lock()
			results[i] = Result{Candidate: candidate, Err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()
	return results
}

// preferTaggedFirst orders tagged deletions ahead of untagged ones within a
// package: deleting a tag before its now-unreferenced child digests avoids
// racing a registry that cascades the deletion itself.
func preferTaggedFirst(candidates []selector.DeletionCandidate) []selector.DeletionCandidate {
	ordered := make([]selector.DeletionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Tagged {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if !c.Tagged {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// Split partitions executor results into the deleted/failed labels the
// Output Reporter needs.
func Split(results []Result) (deleted, failed []selector.DeletionCandidate) {
	for _, r := range results {
		if r.Err == nil {
			deleted = append(deleted, r.Candidate)
		} else {
			failed = append(failed, r.Candidate)
		}
	}
	return deleted, failed
}
