// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package enumerator selects the packages a run will process, bound to
// the client's owner.
package enumerator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/snok/container-retention-policy/internal/auth"
	"github.com/snok/container-retention-policy/internal/matcher"
	"github.com/snok/container-retention-policy/internal/registry"
)

// Strategy is a two-variant tagged enum in place of polymorphism:
// FullList calls list_packages once and filters with the Matcher;
// LiteralLookup calls get_package once per literal name.
type Strategy int

const (
	FullList Strategy = iota
	LiteralLookup
)

// ChooseStrategy selects the strategy once at start-up from the token kind.
func ChooseStrategy(kind auth.Kind) Strategy {
	if kind.IsTemporal() {
		return LiteralLookup
	}
	return FullList
}

// Lister is the subset of the Registry Client the enumerator needs.
type Lister interface {
	ListPackages(ctx context.Context, account registry.Account) ([]registry.Package, error)
	GetPackage(ctx context.Context, account registry.Account, name string) (registry.Package, error)
}

// Enumerate produces the package list a run will process. Output order is
// whatever the registry's listing returned; downstream stages must not
// depend on it.
func Enumerate(ctx context.Context, client Lister, account registry.Account, strategy Strategy, imageNameMatcher *matcher.Matcher, literalNames []string, log *zerolog.Logger) ([]registry.Package, error) {
	switch strategy {
	case LiteralLookup:
		return enumerateLiteral(ctx, client, account, literalNames, log)
	default:
		return enumerateFullList(ctx, client, account, imageNameMatcher)
	}
}

func enumerateFullList(ctx context.Context, client Lister, account registry.Account, imageNameMatcher *matcher.Matcher) ([]registry.Package, error) {
	all, err := client.ListPackages(ctx, account)
	if err != nil {
		return nil, err
	}

	var matched []registry.Package
	for _, pkg := range all {
		ok, err := imageNameMatcher.Match(pkg.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, pkg)
		}
	}
	return matched, nil
}

func enumerateLiteral(ctx context.Context, client Lister, account registry.Account, names []string, log *zerolog.Logger) ([]registry.Package, error) {
	var found []registry.Package
	for _, name := range names {
		pkg, err := client.GetPackage(ctx, account, name)
		if err != nil {
			if log != nil {
				log.Warn().Str("package", name).Err(err).Msg("package not found, skipping")
			}
			continue
		}
		found = append(found, pkg)
	}
	return found, nil
}
