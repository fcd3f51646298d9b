// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package auth

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	assert := assert.New(t)

	// Outside a workflow job, a "ghs_" token is an app-installation token.
	os.Unsetenv("ACTIONS_ID")
	os.Unsetenv("ACTIONS_RUNTIME_TOKEN")

	cases := []struct {
		token string
		want  Kind
	}{
		{"ghp_abcdef1234567890", KindClassicPAT},
		{"github_pat_11ABCDEF0000000000000000", KindClassicPAT},
		{"ghs_abcdef1234567890", KindInstallation},
		{"", KindTemporal},
		{"v1.abcdef1234567890", KindTemporal},
	}
	for _, c := range cases {
		assert.Equal(c.want, DetectKind(c.token), "token %q", c.token)
	}
}

// Inside an Actions job, the GITHUB_TOKEN is "ghs_"-prefixed too; the
// ACTIONS_ID/ACTIONS_RUNTIME_TOKEN shape must reclassify it as temporal.
func TestDetectKindGHSInActionsWorkflowIsTemporal(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("ACTIONS_ID", "some-job-id")
	t.Setenv("ACTIONS_RUNTIME_TOKEN", "some-runtime-token")

	assert.Equal(KindTemporal, DetectKind("ghs_abcdef1234567890"))
}

func TestAllowsWildcards(t *testing.T) {
	assert := assert.New(t)

	assert.True(KindClassicPAT.AllowsWildcards())
	assert.True(KindInstallation.AllowsWildcards())
	assert.False(KindTemporal.AllowsWildcards())
}

func TestIsTemporal(t *testing.T) {
	assert := assert.New(t)

	assert.False(KindClassicPAT.IsTemporal())
	assert.False(KindInstallation.IsTemporal())
	assert.True(KindTemporal.IsTemporal())
}

func TestKindString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("classic-pat", KindClassicPAT.String())
	assert.Equal("installation", KindInstallation.String())
	assert.Equal("temporal", KindTemporal.String())
	assert.Equal("unknown", Kind(99).String())
}
