// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package selector holds the core keep/delete decision for a single
// package's version list. Select is a pure, synchronous function so it is
// unit-testable without any network dependency — manifest resolution is
// injected as a callback rather than called against a live client.
package selector

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/snok/container-retention-policy/internal/config"
	"github.com/snok/container-retention-policy/internal/container/set"
	"github.com/snok/container-retention-policy/internal/matcher"
	"github.com/snok/container-retention-policy/internal/registry"
)

// ManifestResolver fetches and parses a tag's manifest. Selector calls this
// at most once per distinct tag.
type ManifestResolver func(ctx context.Context, tag string) (registry.ManifestDoc, error)

// Options bundles every per-run parameter Select needs.
type Options struct {
	TagMatcher      *matcher.Matcher
	CutOff          time.Duration
	TimestampField  config.TimestampField
	TagSelection    config.TagSelection
	SkipSHA         set.Set[string]
	KeepNMostRecent int
	Now             time.Time
}

// DeletionCandidate is a version slated for deletion.
type DeletionCandidate struct {
	PackageName string
	VersionID   int64
	Digest      string
	Label       string
	Tagged      bool
}

// Decision is the full outcome of one package's selection pass.
type Decision struct {
	ToDelete []DeletionCandidate
	Kept     []registry.PackageVersion
}

type tagAssociation struct {
	tag      string
	platform registry.Platform
}

// Select runs the keep/delete algorithm against an already fetched version
// list: age/matcher/skip-sha filtering, manifest-protected digest
// resolution, keep-n-most-recent, and the final tag-selection filter, in
// that order.
func Select(ctx context.Context, packageName string, versions []registry.PackageVersion, opts Options, resolve ManifestResolver, log *zerolog.Logger) (Decision, error) {
	tagged, untagged := partition(versions)

	deleteCandidates, err := computeDeleteCandidates(tagged, opts)
	if err != nil {
		return Decision{}, err
	}
	candidateSet := versionSet(deleteCandidates)

	var tagsToKeep []registry.PackageVersion
	for _, v := range tagged {
		if !candidateSet.Contains(v.ID) {
			tagsToKeep = append(tagsToKeep, v)
		}
	}

	tagChildren, digestToTags, err := resolveAllManifests(ctx, tagged, resolve, log)
	if err != nil {
		return Decision{}, err
	}

	keptDigests := set.New[string]()
	for _, v := range tagsToKeep {
		keptDigests.Add(v.Digest())
		for _, tag := range v.Tags {
			for _, child := range tagChildren[tag] {
				keptDigests.Add(child.digest)
			}
		}
	}
	for d := range opts.SkipSHA {
		keptDigests.Add(d)
	}

	var untaggedToDelete []registry.PackageVersion
	for _, v := range untagged {
		if keptDigests.Contains(v.Digest()) {
			continue
		}
		untaggedToDelete = append(untaggedToDelete, v)
	}

	finalTaggedDelete := applyKeepN(deleteCandidates, opts)

	var toDelete []DeletionCandidate
	if opts.TagSelection == config.TagSelectionTagged || opts.TagSelection == config.TagSelectionBoth {
		for _, v := range finalTaggedDelete {
			toDelete = append(toDelete, DeletionCandidate{
				PackageName: packageName,
				VersionID:   v.ID,
				Digest:      v.Digest(),
				Label:       label(v),
				Tagged:      true,
			})
		}
	}
	if opts.TagSelection == config.TagSelectionUntagged || opts.TagSelection == config.TagSelectionBoth {
		for _, v := range untaggedToDelete {
			toDelete = append(toDelete, DeletionCandidate{
				PackageName: packageName,
				VersionID:   v.ID,
				Digest:      v.Digest(),
				Label:       untaggedLabel(v, digestToTags),
				Tagged:      false,
			})
		}
	}

	return Decision{ToDelete: toDelete, Kept: keptVersions(versions, toDelete)}, nil
}

func partition(versions []registry.PackageVersion) (tagged, untagged []registry.PackageVersion) {
	for _, v := range versions {
		if v.IsTagged() {
			tagged = append(tagged, v)
		} else {
			untagged = append(untagged, v)
		}
	}
	return tagged, untagged
}

// computeDeleteCandidates finds the tagged versions old enough, unskipped,
// and matcher-matched for deletion consideration.
func computeDeleteCandidates(tagged []registry.PackageVersion, opts Options) ([]registry.PackageVersion, error) {
	if opts.TagSelection != config.TagSelectionTagged && opts.TagSelection != config.TagSelectionBoth {
		return nil, nil
	}

	var candidates []registry.PackageVersion
	for _, v := range tagged {
		if opts.Now.Sub(v.Timestamp(string(opts.TimestampField))) <= opts.CutOff {
			continue
		}
		if opts.SkipSHA.Contains(v.Digest()) {
			continue
		}
		matchedAny := false
		for _, tag := range v.Tags {
			ok, err := opts.TagMatcher.Match(tag)
			if err != nil {
				return nil, err
			}
			if ok {
				matchedAny = true
				break
			}
		}
		if !matchedAny {
			continue
		}
		candidates = append(candidates, v)
	}
	return candidates, nil
}

// applyKeepN sorts by timestamp descending and removes the first K from
// the delete list. K is never adjusted for versions already filtered out
// elsewhere.
func applyKeepN(candidates []registry.PackageVersion, opts Options) []registry.PackageVersion {
	if opts.KeepNMostRecent <= 0 || len(candidates) == 0 {
		return candidates
	}

	sorted := make([]registry.PackageVersion, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp(string(opts.TimestampField)).After(sorted[j].Timestamp(string(opts.TimestampField)))
	})

	k := opts.KeepNMostRecent
	if k > len(sorted) {
		k = len(sorted)
	}
	kept := make(map[int64]bool, k)
	for _, v := range sorted[:k] {
		kept[v.ID] = true
	}

	var remaining []registry.PackageVersion
	for _, v := range candidates {
		if !kept[v.ID] {
			remaining = append(remaining, v)
		}
	}
	return remaining
}

type digestAssoc struct {
	digest   string
	platform registry.Platform
}

// resolveAllManifests fetches every tag's manifest once, warn-and-continue
// on any failure: a manifest failure must never abort the run, only leave
// that tag's children unprotected. It returns two views of the same data:
// tagChildren (a kept tag's children, for building kept_digests) and
// digestToTags (a digest's referencing tags, for labeling untagged
// children as orphaned vs part-of).
func resolveAllManifests(ctx context.Context, tagged []registry.PackageVersion, resolve ManifestResolver, log *zerolog.Logger) (tagChildren map[string][]digestAssoc, digestToTags map[string][]tagAssociation, err error) {
	tagChildren = make(map[string][]digestAssoc)
	digestToTags = make(map[string][]tagAssociation)
	seen := set.New[string]()

	for _, v := range tagged {
		for _, tag := range v.Tags {
			if seen.Contains(tag) {
				continue
			}
			seen.Add(tag)

			doc, resolveErr := resolve(ctx, tag)
			if resolveErr != nil {
				if log != nil {
					log.Warn().Str("tag", tag).Err(resolveErr).Msg("manifest resolution failed, treating as single-platform")
				}
				continue
			}
			for _, child := range doc.Children {
				tagChildren[tag] = append(tagChildren[tag], digestAssoc{digest: child.Digest, platform: child.Platform})
				digestToTags[child.Digest] = append(digestToTags[child.Digest], tagAssociation{tag: tag, platform: child.Platform})
			}
		}
	}
	return tagChildren, digestToTags, nil
}

func label(v registry.PackageVersion) string {
	if len(v.Tags) > 0 {
		return v.Tags[0]
	}
	return "<untagged>"
}

func untaggedLabel(v registry.PackageVersion, byDigest map[string][]tagAssociation) string {
	if assocs, ok := byDigest[v.Digest()]; ok && len(assocs) > 0 {
		return "<untagged> (part of: " + assocs[0].tag + ")"
	}
	return "<untagged> (orphaned)"
}

type versionIDSet map[int64]struct{}

func (s versionIDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

func versionSet(versions []registry.PackageVersion) versionIDSet {
	s := make(versionIDSet, len(versions))
	for _, v := range versions {
		s[v.ID] = struct{}{}
	}
	return s
}

func keptVersions(all []registry.PackageVersion, toDelete []DeletionCandidate) []registry.PackageVersion {
	deleted := make(map[int64]bool, len(toDelete))
	for _, c := range toDelete {
		deleted[c.VersionID] = true
	}
	var kept []registry.PackageVersion
	for _, v := range all {
		if !deleted[v.ID] {
			kept = append(kept, v)
		}
	}
	return kept
}
