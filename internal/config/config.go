// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package config parses and validates the engine's flags. It is the only
// package allowed to produce a configuration error: every other package
// assumes its inputs have already passed Validate.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/snok/container-retention-policy/internal/auth"
)

// AccountKind distinguishes a personal-account login from an organization.
type AccountKind string

const (
	AccountUser         AccountKind = "user"
	AccountOrganization AccountKind = "organization"
)

// TagSelection restricts which kind of version the Version Selector may
// delete: tagged, untagged, or both.
type TagSelection string

const (
	TagSelectionTagged   TagSelection = "tagged"
	TagSelectionUntagged TagSelection = "untagged"
	TagSelectionBoth     TagSelection = "both"
)

// TimestampField selects which package-version timestamp the age cut-off
// and keep-n-most-recent ordering compare against.
type TimestampField string

const (
	TimestampCreatedAt TimestampField = "created_at"
	TimestampUpdatedAt TimestampField = "updated_at"
)

// Options holds the validated, parsed form of every command-line flag.
type Options struct {
	AccountLogin     string
	AccountKind      AccountKind
	Token            string
	ImageNames       []string
	ImageTags        []string
	ShasToSkip       []string
	TagSelection     TagSelection
	KeepNMostRecent  int
	TimestampToUse   TimestampField
	CutOff           time.Duration
	DryRun           bool
	ConfigPaths      []string
	TokenKind        auth.Kind
}

// Flags is the raw, unvalidated command-line input; Validate turns it into
// an Options value or returns a configuration error, fatal and raised
// before any network call is made.
type Flags struct {
	Account          string
	Token            string
	ImageNames       string
	ImageTags        string
	ShasToSkip       string
	TagSelection     string
	KeepNMostRecent  int
	TimestampToUse   string
	CutOff           string
	DryRun           bool
	ConfigPaths      []string
}

// Validate converts raw flags into Options, rejecting anything that would
// otherwise surface as a confusing failure deep into a run.
func (f Flags) Validate() (Options, error) {
	opts := Options{
		DryRun:          f.DryRun,
		KeepNMostRecent: f.KeepNMostRecent,
		ConfigPaths:     f.ConfigPaths,
	}

	login, kind, err := parseAccount(f.Account)
	if err != nil {
		return Options{}, errors.Wrap(err, "invalid --account")
	}
	opts.AccountLogin = login
	opts.AccountKind = kind

	token := f.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	opts.Token = token
	opts.TokenKind = auth.DetectKind(token)

	opts.ImageNames = splitList(f.ImageNames)
	opts.ImageTags = splitList(f.ImageTags)
	opts.ShasToSkip = splitList(f.ShasToSkip)

	if opts.TokenKind.IsTemporal() {
		if hasWildcard, pattern := firstWildcard(opts.ImageNames, opts.ImageTags); hasWildcard {
			return Options{}, errors.Errorf("pattern %q uses a wildcard or negation, which a short-lived workflow token cannot authorize; use a classic PAT or app installation token instead", pattern)
		}
	}

	if f.KeepNMostRecent < 0 {
		return Options{}, errors.New("--keep-n-most-recent must be a non-negative integer")
	}

	switch TagSelection(f.TagSelection) {
	case TagSelectionTagged, TagSelectionUntagged, TagSelectionBoth:
		opts.TagSelection = TagSelection(f.TagSelection)
	case "":
		opts.TagSelection = TagSelectionBoth
	default:
		return Options{}, errors.Errorf("invalid --tag-selection %q, must be one of tagged|untagged|both", f.TagSelection)
	}

	switch TimestampField(f.TimestampToUse) {
	case TimestampCreatedAt, TimestampUpdatedAt:
		opts.TimestampToUse = TimestampField(f.TimestampToUse)
	case "":
		opts.TimestampToUse = TimestampUpdatedAt
	default:
		return Options{}, errors.Errorf("invalid --timestamp-to-use %q, must be created_at|updated_at", f.TimestampToUse)
	}

	cutOff, err := ParseCutOff(f.CutOff)
	if err != nil {
		return Options{}, errors.Wrap(err, "invalid --cut-off")
	}
	opts.CutOff = cutOff

	if opts.Token == "" {
		// Not fatal here: the docker-config credential fallback (internal/auth)
		// may still resolve one. Resolution happens in the registry client;
		// an empty token only becomes fatal if that fallback also fails.
		return opts, nil
	}

	return opts, nil
}

// parseAccount splits the --account value of the form "<login>" defaulting
// to AccountUser, or "org:<login>" / "user:<login>" when the kind must be
// disambiguated (a login can be both a user and an org name on different
// GitHub Enterprise instances).
func parseAccount(raw string) (string, AccountKind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("--account is required")
	}
	if login, ok := strings.CutPrefix(raw, "org:"); ok {
		if login == "" {
			return "", "", errors.New("--account org: prefix requires a login")
		}
		return login, AccountOrganization, nil
	}
	if login, ok := strings.CutPrefix(raw, "user:"); ok {
		if login == "" {
			return "", "", errors.New("--account user: prefix requires a login")
		}
		return login, AccountUser, nil
	}
	return raw, AccountOrganization, nil
}

// firstWildcard reports the first pattern, across both lists, that contains
// a glob metacharacter or a leading negation — the set the Matcher treats
// specially and that a temporal token may not use.
func firstWildcard(lists ...[]string) (bool, string) {
	for _, list := range lists {
		for _, pattern := range list {
			if strings.HasPrefix(pattern, "!") || strings.ContainsAny(pattern, "*?") {
				return true, pattern
			}
		}
	}
	return false, ""
}

// splitList accepts comma- or space-separated lists.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
