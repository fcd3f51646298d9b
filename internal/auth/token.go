// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package auth

import (
	"os"
	"strings"
)

// Kind classifies the authentication token. The classification is static —
// it never makes a network call — because it gates two decisions that must
// be made before the first request: whether the Matcher may accept
// wildcards/negation, and which strategy the Enumerator picks.
type Kind int

const (
	// KindClassicPAT is a classic personal-access token (packages:write) or
	// an app-installation token. Both permit wildcard/negation patterns.
	KindClassicPAT Kind = iota
	// KindInstallation is a GitHub App installation token.
	KindInstallation
	// KindTemporal is a short-lived workflow token (GITHUB_TOKEN). The
	// Matcher must reject wildcards/negation for these.
	KindTemporal
)

// DetectKind classifies a token by its well-known static prefix.
//
//   - "ghp_" / "github_pat_" -> classic PAT
//   - "ghs_"                 -> GitHub App server-to-server installation
//     token, UNLESS the process environment has the ACTIONS_ID/
//     ACTIONS_RUNTIME_TOKEN shape the Actions runner sets for every job — the
//     GITHUB_TOKEN minted for a workflow run is itself "ghs_"-prefixed, so
//     prefix alone can't tell an app-installation token from the short-lived
//     workflow token. See runningInActionsWorkflow.
//   - anything else is treated as temporal, the conservative choice: a token
//     we can't positively identify as long-lived is assumed short-lived, so
//     the Matcher's wildcard restriction fails closed rather than open.
func DetectKind(token string) Kind {
	switch {
	case strings.HasPrefix(token, "ghp_"), strings.HasPrefix(token, "github_pat_"):
		return KindClassicPAT
	case strings.HasPrefix(token, "ghs_"):
		if runningInActionsWorkflow() {
			return KindTemporal
		}
		return KindInstallation
	default:
		return KindTemporal
	}
}

// runningInActionsWorkflow reports whether the process is executing as a
// GitHub Actions job step, using the same ACTIONS_ID/ACTIONS_RUNTIME_TOKEN
// environment variables the Actions runner sets so its SDK can request and
// refresh the job's GITHUB_TOKEN.
func runningInActionsWorkflow() bool {
	_, hasID := os.LookupEnv("ACTIONS_ID")
	_, hasRuntimeToken := os.LookupEnv("ACTIONS_RUNTIME_TOKEN")
	return hasID && hasRuntimeToken
}

// AllowsWildcards reports whether the token kind permits the Matcher to
// accept wildcard/negation patterns.
func (k Kind) AllowsWildcards() bool {
	return k == KindClassicPAT || k == KindInstallation
}

// IsTemporal reports whether the token is the short-lived workflow kind,
// which also disables internal/enumerator's full-listing strategy: a
// temporal token cannot call list_packages, only get_package by name.
func (k Kind) IsTemporal() bool {
	return k == KindTemporal
}

func (k Kind) String() string {
	switch k {
	case KindClassicPAT:
		return "classic-pat"
	case KindInstallation:
		return "installation"
	case KindTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}
