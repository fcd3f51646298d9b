// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package matcher implements an include/exclude glob predicate: a pattern
// list compiled once and evaluated per candidate name.
package matcher

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// defaultRegexpOptions turns on RE2 compatibility mode so the `?`/`*`
// group rules stay predictable across patterns.
const defaultRegexpOptions regexp2.RegexOptions = regexp2.RE2

// matchTimeout bounds a single pattern evaluation. Fixed rather than
// configurable, since glob patterns compiled here can never carry the
// pathological backtracking shapes a free-form regex could.
const matchTimeout = 2 * time.Second

// pattern is one compiled glob entry: its source text, whether it is a `!`
// exclusion, and the anchored regexp2.Regexp it compiles to.
type pattern struct {
	source  string
	negated bool
	re      *regexp2.Regexp
}

// Matcher is a compiled predicate over a single list of glob patterns. One
// Matcher is built for image-names and a second for image-tags.
type Matcher struct {
	patterns []pattern
	anyPos   bool
}

// New compiles raw, comma-/space-already-split patterns into a Matcher.
// allowWildcards must be false when the caller resolved a temporal token;
// a wildcard or `!` pattern in that case is a configuration error, not
// silently ignored.
func New(rawPatterns []string, allowWildcards bool) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		negated := strings.HasPrefix(raw, "!")
		body := raw
		if negated {
			body = raw[1:]
		}

		isWildcard := negated || strings.ContainsAny(body, "*?")
		if isWildcard && !allowWildcards {
			return nil, errors.Errorf("pattern %q uses a wildcard or negation, not permitted for this token kind", raw)
		}

		re, err := compileGlob(body)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", raw)
		}

		m.patterns = append(m.patterns, pattern{source: raw, negated: negated, re: re})
		if !negated {
			m.anyPos = true
		}
	}
	return m, nil
}

// Match reports whether name passes the predicate: some non-negated pattern
// matches (or there were none, meaning match-any), and no negated pattern
// matches.
func (m *Matcher) Match(name string) (bool, error) {
	if m == nil || len(m.patterns) == 0 {
		return true, nil
	}

	matchedPositive := !m.anyPos
	for _, p := range m.patterns {
		ok, err := p.re.MatchString(name)
		if err != nil {
			// The only error regexp2 returns is a match timeout.
			return false, errors.Wrapf(err, "pattern %q timed out matching %q", p.source, name)
		}
		if !ok {
			continue
		}
		if p.negated {
			return false, nil
		}
		matchedPositive = true
	}
	return matchedPositive, nil
}

// compileGlob turns a glob body (no leading `!`) into an anchored,
// whole-token regexp2 pattern: `*` -> `.*`, `?` -> `.`, everything else
// literal. Matching is whole-token and case-sensitive, so the compiled
// pattern is anchored at both ends and no case-insensitive option is set.
func compileGlob(glob string) (*regexp2.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			if strings.ContainsRune(`\.+()[]{}|^$`, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	b.WriteString("$")

	re, err := regexp2.Compile(b.String(), defaultRegexpOptions)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}
