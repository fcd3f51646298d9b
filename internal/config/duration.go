// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// unit is one token of a cut-off expression: a magnitude plus a suffix
// ("2w", "3d", "5h", "2s"). Tokens are whitespace-separated and may be given
// in any order; the same suffix appearing twice is a configuration error.
type unit struct {
	suffix string
	size   time.Duration
}

// units are checked longest-suffix-first so "w" doesn't shadow nothing and
// the parser can match a plain trailing letter per token.
var units = []unit{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// ParseCutOff parses a cut-off expression of the form "2w 3d 5h 2s" into a
// time.Duration. Any subset of the five units may be given, in any order,
// separated by whitespace; repeating a unit is a configuration error.
func ParseCutOff(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, nil
	}

	var total time.Duration
	seen := map[string]bool{}
	for _, token := range strings.Fields(expr) {
		magnitude, suffix, err := splitToken(token)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid cut-off token %q", token)
		}
		if seen[suffix] {
			return 0, errors.Errorf("cut-off expression %q repeats unit %q", expr, suffix)
		}
		seen[suffix] = true

		u, ok := lookupUnit(suffix)
		if !ok {
			return 0, errors.Errorf("cut-off expression %q has unknown unit %q", expr, suffix)
		}
		total += time.Duration(magnitude) * u.size
	}
	return total, nil
}

func splitToken(token string) (int64, string, error) {
	i := 0
	for i < len(token) && token[i] >= '0' && token[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", errors.New("token has no numeric magnitude")
	}
	if i == len(token) {
		return 0, "", errors.New("token has no unit suffix")
	}
	var magnitude int64
	if _, err := fmt.Sscanf(token[:i], "%d", &magnitude); err != nil {
		return 0, "", err
	}
	return magnitude, token[i:], nil
}

func lookupUnit(suffix string) (unit, bool) {
	for _, u := range units {
		if u.suffix == suffix {
			return u, true
		}
	}
	return unit{}, false
}
