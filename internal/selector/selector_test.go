// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package selector

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/snok/container-retention-policy/internal/config"
	"github.com/snok/container-retention-policy/internal/container/set"
	"github.com/snok/container-retention-policy/internal/matcher"
	"github.com/snok/container-retention-policy/internal/registry"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func taggedVersion(id int64, digest string, tags []string, age time.Duration) registry.PackageVersion {
	return registry.PackageVersion{
		ID:        id,
		Name:      digest,
		Tags:      tags,
		CreatedAt: fixedNow.Add(-age),
		UpdatedAt: fixedNow.Add(-age),
	}
}

func noResolve(ctx context.Context, tag string) (registry.ManifestDoc, error) {
	return registry.ManifestDoc{}, nil
}

func baseOpts(t *testing.T) Options {
	m, err := matcher.New(nil, true)
	assert.NoError(t, err)
	return Options{
		TagMatcher:     m,
		CutOff:         0,
		TimestampField: config.TimestampUpdatedAt,
		TagSelection:   config.TagSelectionBoth,
		SkipSHA:        set.New[string](),
		Now:            fixedNow,
	}
}

// Versions older than the cut-off are deleted; newer ones are kept.
func TestSelectAgeCutOff(t *testing.T) {
	assert := assert.New(t)
	opts := baseOpts(t)
	opts.CutOff = 7 * 24 * time.Hour

	versions := []registry.PackageVersion{
		taggedVersion(1, "sha256:a1", []string{"v1d"}, 1*24*time.Hour),
		taggedVersion(2, "sha256:a10", []string{"v10d"}, 10*24*time.Hour),
		taggedVersion(3, "sha256:a30", []string{"v30d"}, 30*24*time.Hour),
	}

	decision, err := Select(context.Background(), "app", versions, opts, noResolve, nil)
	assert.NoError(err)

	deletedIDs := idsOf(decision.ToDelete)
	assert.ElementsMatch([]int64{2, 3}, deletedIDs)
}

// A negated pattern excludes matching tags from deletion regardless of age.
func TestSelectNegationPattern(t *testing.T) {
	assert := assert.New(t)
	m, err := matcher.New([]string{"!prod", "!qa"}, true)
	assert.NoError(err)

	opts := baseOpts(t)
	opts.TagMatcher = m
	opts.CutOff = 0

	versions := []registry.PackageVersion{
		taggedVersion(1, "sha256:prod", []string{"prod"}, time.Hour),
		taggedVersion(2, "sha256:qa", []string{"qa"}, time.Hour),
		taggedVersion(3, "sha256:dev123", []string{"dev-123"}, time.Hour),
		taggedVersion(4, "sha256:dev124", []string{"dev-124"}, time.Hour),
	}

	decision, err := Select(context.Background(), "app", versions, opts, noResolve, nil)
	assert.NoError(err)
	assert.ElementsMatch([]int64{3, 4}, idsOf(decision.ToDelete))
}

// An image index's child digests stay protected as long as their parent tag is kept.
func TestSelectMultiPlatformProtection(t *testing.T) {
	assert := assert.New(t)
	m, err := matcher.New([]string{"!v1"}, true)
	assert.NoError(err)

	opts := baseOpts(t)
	opts.TagMatcher = m
	opts.CutOff = 0

	versions := []registry.PackageVersion{
		taggedVersion(1, "sha256:index", []string{"v1"}, time.Hour),
		{ID: 2, Name: "sha256:amd64", CreatedAt: fixedNow.Add(-time.Hour), UpdatedAt: fixedNow.Add(-time.Hour)},
		{ID: 3, Name: "sha256:arm64", CreatedAt: fixedNow.Add(-time.Hour), UpdatedAt: fixedNow.Add(-time.Hour)},
		{ID: 4, Name: "sha256:orphan", CreatedAt: fixedNow.Add(-time.Hour), UpdatedAt: fixedNow.Add(-time.Hour)},
	}

	resolve := func(ctx context.Context, tag string) (registry.ManifestDoc, error) {
		if tag == "v1" {
			return registry.ManifestDoc{
				IsIndex: true,
				Children: []registry.ManifestRef{
					{Digest: "sha256:amd64", Platform: registry.Platform{OS: "linux", Architecture: "amd64"}},
					{Digest: "sha256:arm64", Platform: registry.Platform{OS: "linux", Architecture: "arm64"}},
				},
			}, nil
		}
		return registry.ManifestDoc{}, nil
	}

	decision, err := Select(context.Background(), "app", versions, opts, resolve, nil)
	assert.NoError(err)
	assert.ElementsMatch([]int64{4}, idsOf(decision.ToDelete))
}

// The N most recently updated matching versions are always kept.
func TestSelectKeepNMostRecent(t *testing.T) {
	assert := assert.New(t)
	opts := baseOpts(t)
	opts.CutOff = 0
	opts.KeepNMostRecent = 3

	var versions []registry.PackageVersion
	for i := int64(1); i <= 10; i++ {
		tag := "tag-" + strconv.FormatInt(i, 10)
		versions = append(versions, taggedVersion(i, "sha256:v"+strconv.FormatInt(i, 10), []string{tag}, time.Duration(i)*time.Hour))
	}

	decision, err := Select(context.Background(), "app", versions, opts, noResolve, nil)
	assert.NoError(err)
	assert.Len(decision.ToDelete, 7)

	deleted := idsOf(decision.ToDelete)
	for _, keepID := range []int64{1, 2, 3} {
		assert.NotContains(deleted, keepID)
	}
}

// A manifest fetch failure does not abort selection; the tag is treated as single-platform.
func TestSelectManifestFetchFailureIsNonFatal(t *testing.T) {
	assert := assert.New(t)
	m, err := matcher.New([]string{"!v2"}, true)
	assert.NoError(err)

	opts := baseOpts(t)
	opts.TagMatcher = m
	opts.CutOff = 0

	versions := []registry.PackageVersion{
		taggedVersion(1, "sha256:v2index", []string{"v2"}, time.Hour),
		{ID: 2, Name: "sha256:child", CreatedAt: fixedNow.Add(-time.Hour), UpdatedAt: fixedNow.Add(-time.Hour)},
	}

	failing := func(ctx context.Context, tag string) (registry.ManifestDoc, error) {
		return registry.ManifestDoc{}, assertError{}
	}

	decision, err := Select(context.Background(), "app", versions, opts, failing, nil)
	assert.NoError(err)
	assert.ElementsMatch([]int64{2}, idsOf(decision.ToDelete))
}

type assertError struct{}

func (assertError) Error() string { return "manifest endpoint returned 500" }

func idsOf(candidates []DeletionCandidate) []int64 {
	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.VersionID)
	}
	return ids
}
