// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package reporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snok/container-retention-policy/internal/selector"
)

func TestFormat(t *testing.T) {
	assert := assert.New(t)

	candidates := []selector.DeletionCandidate{
		{PackageName: "app", Label: "v1.0", Tagged: true},
		{PackageName: "app", Label: "<untagged> (orphaned)", VersionID: 42, Tagged: false},
	}
	assert.Equal("app:v1.0,app:42", Format(candidates))
}

func TestFormatEmpty(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("", Format(nil))
}

func TestWriteToGithubOutputFile(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "github_output")
	assert.NoError(os.Setenv("GITHUB_OUTPUT", outputPath))
	defer os.Unsetenv("GITHUB_OUTPUT")

	deleted := []selector.DeletionCandidate{{PackageName: "app", Label: "v1", Tagged: true}}
	failed := []selector.DeletionCandidate{{PackageName: "app", Label: "v2", Tagged: true}}

	assert.NoError(Write(deleted, failed))

	content, err := os.ReadFile(outputPath)
	assert.NoError(err)
	assert.Equal("deleted=app:v1\nfailed=app:v2\n", string(content))
}
