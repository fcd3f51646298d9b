// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package registry is the GitHub Packages REST client: the four GitHub
// Packages REST operations plus the OCI manifest fetch, all routed through
// the Rate Governor.
package registry

import "time"

// AccountKind mirrors config.AccountKind without importing internal/config,
// keeping this package free of a dependency on the CLI layer.
type AccountKind string

const (
	AccountUser         AccountKind = "user"
	AccountOrganization AccountKind = "organization"
)

// Account identifies the registry owner.
type Account struct {
	Kind  AccountKind
	Login string
}

// Package is a single container package.
type Package struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner"`
}

// PackageVersion is a single immutable image entry. Tags is empty for an
// untagged version.
type PackageVersion struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"-"`
}

// Digest returns the version's content digest, e.g. "sha256:...". GitHub's
// package-version API names this field differently depending on whether the
// version came from list_package_versions or a manifest-resolved reference;
// Name carries it for container packages.
func (v PackageVersion) Digest() string {
	return v.Name
}

// IsTagged reports whether the version carries at least one tag.
func (v PackageVersion) IsTagged() bool {
	return len(v.Tags) > 0
}

// rawPackageVersion is the GitHub Packages REST wire shape: tags live under
// metadata.container.tags rather than as a top-level field.
type rawPackageVersion struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Metadata  struct {
		Container struct {
			Tags []string `json:"tags"`
		} `json:"container"`
	} `json:"metadata"`
}

func (r rawPackageVersion) toPackageVersion() PackageVersion {
	return PackageVersion{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Tags:      r.Metadata.Container.Tags,
	}
}

// Timestamp returns CreatedAt or UpdatedAt depending on field.
func (v PackageVersion) Timestamp(field string) time.Time {
	if field == "created_at" {
		return v.CreatedAt
	}
	return v.UpdatedAt
}

// Platform identifies one child manifest's target platform.
type Platform struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	Variant      string `json:"variant,omitempty"`
}

// ManifestRef is one child of a multi-platform index.
type ManifestRef struct {
	Digest   string   `json:"digest"`
	Platform Platform `json:"platform"`
}

// ManifestDoc is the parsed result of a manifest fetch: an OCI image index
// with children, or a single-platform manifest with none.
type ManifestDoc struct {
	IsIndex  bool
	Children []ManifestRef
}
