// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package reporter does pure formatting of the deleted/failed candidate
// lists into the two named, comma-separated GitHub Actions outputs.
package reporter

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/snok/container-retention-policy/internal/selector"
)

// Format turns a candidate list into a `<image-name>:<version-label>`
// comma-separated string. No ordering is guaranteed.
//
// The label here is deliberately the plain one — first tag, else the
// version id, never the annotated "<untagged> (part of: ...)" form
// DeletionCandidate.Label carries for log lines. This output is consumed by
// downstream workflow steps (e.g. to post a PR comment or build a follow-up
// matrix), and those consumers match against a tag or a version id, not a
// human-readable annotation.
func Format(candidates []selector.DeletionCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s:%s", c.PackageName, outputLabel(c)))
	}
	return strings.Join(parts, ",")
}

// outputLabel is the plain label: first tag if the candidate is tagged,
// otherwise the version id.
func outputLabel(c selector.DeletionCandidate) string {
	if c.Tagged {
		return c.Label
	}
	return strconv.FormatInt(c.VersionID, 10)
}

// Write emits the two named outputs. When GITHUB_OUTPUT is set (running as
// a GitHub Actions step) it appends `deleted=...`/`failed=...` lines to
// that file; otherwise it falls back to stdout.
func Write(deleted, failed []selector.DeletionCandidate) error {
	deletedStr := Format(deleted)
	failedStr := Format(failed)

	outputPath := os.Getenv("GITHUB_OUTPUT")
	if outputPath == "" {
		fmt.Printf("deleted=%s\n", deletedStr)
		fmt.Printf("failed=%s\n", failedStr)
		return nil
	}

	f, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening GITHUB_OUTPUT")
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "deleted=%s\nfailed=%s\n", deletedStr, failedStr); err != nil {
		return errors.Wrap(err, "writing GITHUB_OUTPUT")
	}
	return nil
}
