// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/snok/container-retention-policy/internal/auth"
	"github.com/snok/container-retention-policy/internal/config"
	"github.com/snok/container-retention-policy/internal/container/set"
	"github.com/snok/container-retention-policy/internal/enumerator"
	"github.com/snok/container-retention-policy/internal/executor"
	"github.com/snok/container-retention-policy/internal/logger"
	"github.com/snok/container-retention-policy/internal/matcher"
	"github.com/snok/container-retention-policy/internal/ratelimit"
	"github.com/snok/container-retention-policy/internal/registry"
	"github.com/snok/container-retention-policy/internal/reporter"
	"github.com/snok/container-retention-policy/internal/selector"
)

const registryHost = "ghcr.io"

// run wires the Matcher, Rate Governor, Registry Client, Enumerator,
// Version Selector, Deletion Executor, and Output Reporter into a single
// pipeline: the full keep/delete decision for a package completes before
// any deletion for that package starts.
func run(ctx context.Context, opts config.Options) error {
	log := logger.WithRunID(logger.Get(), uuid.New().String())

	allowWildcards := opts.TokenKind.AllowsWildcards()
	nameMatcher, err := matcher.New(opts.ImageNames, allowWildcards)
	if err != nil {
		return errors.Wrap(err, "compiling image-names matcher")
	}
	tagMatcher, err := matcher.New(opts.ImageTags, allowWildcards)
	if err != nil {
		return errors.Wrap(err, "compiling image-tags matcher")
	}

	account := registry.Account{Kind: toRegistryAccountKind(opts.AccountKind), Login: opts.AccountLogin}

	governor := ratelimit.New(0)
	client := registry.NewClient(opts.Token, governor, "")

	manifestClient, err := resolveManifestClient(opts)
	if err != nil {
		return errors.Wrap(err, "resolving registry credentials")
	}
	fetcher := registry.NewManifestFetcher(registryHost, manifestClient)

	strategy := enumerator.ChooseStrategy(opts.TokenKind)
	packages, err := enumerator.Enumerate(ctx, client, account, strategy, nameMatcher, opts.ImageNames, log)
	if err != nil {
		return errors.Wrap(err, "enumerating packages")
	}

	skipSHA := set.New(opts.ShasToSkip...)
	now := time.Now()

	var allDeleted, allFailed []selector.DeletionCandidate
	for _, pkg := range packages {
		versions, err := client.ListPackageVersions(ctx, account, pkg)
		if err != nil {
			log.Error().Str(logger.FieldPackage, pkg.Name).Err(err).Msg("failed to list package versions")
			continue
		}

		owner := pkg.OwnerName
		resolve := func(ctx context.Context, tag string) (registry.ManifestDoc, error) {
			return fetcher.Fetch(ctx, owner, pkg.Name, tag)
		}

		decision, err := selector.Select(ctx, pkg.Name, versions, selector.Options{
			TagMatcher:      tagMatcher,
			CutOff:          opts.CutOff,
			TimestampField:  opts.TimestampToUse,
			TagSelection:    opts.TagSelection,
			SkipSHA:         skipSHA,
			KeepNMostRecent: opts.KeepNMostRecent,
			Now:             now,
		}, resolve, log)
		if err != nil {
			log.Error().Str(logger.FieldPackage, pkg.Name).Err(err).Msg("selection failed for package")
			continue
		}

		results := executor.Run(ctx, client, account, pkg, decision.ToDelete, opts.DryRun, 100, log)
		deleted, failed := executor.Split(results)
		allDeleted = append(allDeleted, deleted...)
		allFailed = append(allFailed, failed...)

		log.Info().
			Str(logger.FieldPackage, pkg.Name).
			Int(logger.FieldVersionCount, len(versions)).
			Int(logger.FieldDeletedCount, len(deleted)).
			Int(logger.FieldFailedCount, len(failed)).
			Bool(logger.FieldDryRun, opts.DryRun).
			Msg("package processed")
	}

	return reporter.Write(allDeleted, allFailed)
}

// resolveManifestClient builds the OCI client used for manifest fetches.
// The --token/env bearer token takes precedence; the docker-config Store is
// only consulted as a fallback when no token was given. Both paths go
// through auth.NewClient so there is exactly one place that builds an
// authenticated OCI client.
func resolveManifestClient(opts config.Options) (remote.Client, error) {
	if opts.Token != "" {
		return auth.NewClient(auth.ClientOptions{
			RegistryHost: registryHost,
			Credential:   auth.Credential("", opts.Token),
		}), nil
	}

	store, err := auth.NewStore(opts.ConfigPaths...)
	if err != nil {
		return nil, err
	}
	return auth.NewClient(auth.ClientOptions{CredentialStore: store}), nil
}

func toRegistryAccountKind(k config.AccountKind) registry.AccountKind {
	if k == config.AccountUser {
		return registry.AccountUser
	}
	return registry.AccountOrganization
}
