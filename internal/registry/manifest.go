// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package registry

import (
	"context"
	"encoding/json"
	"fmt"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"
)

// ManifestFetcher resolves OCI manifests for a package's tags. It is a
// distinct, lightweight client from Client because it talks the OCI
// distribution protocol against ghcr.io, not the GitHub REST API, and so
// is not subject to the GitHub Packages rate-limit budget.
type ManifestFetcher struct {
	registryHost string
	client       remote.Client
}

// NewManifestFetcher builds a fetcher against the given OCI registry host
// (typically ghcr.io), using the given remote.Client for authentication and
// transport. Callers build that client with internal/auth.NewClient so that
// every OCI request, not just this one, shares one credential-resolution
// path.
func NewManifestFetcher(registryHost string, client remote.Client) *ManifestFetcher {
	return &ManifestFetcher{registryHost: registryHost, client: client}
}

// Fetch hits https://<registry-host>/v2/<owner>%2F<name>/manifests/<tag>
// and parses the response as an OCI image index first, falling back to a
// single-platform manifest. A network failure, a non-OCI body, or a parse
// failure is non-fatal: the caller gets a ManifestDoc with IsIndex=false
// and an error to log at warning, and must still treat the tag as
// single-platform rather than abort the run.
func (f *ManifestFetcher) Fetch(ctx context.Context, owner, name, tag string) (ManifestDoc, error) {
	repoRef := fmt.Sprintf("%s/%s%%2F%s", f.registryHost, owner, name)
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return ManifestDoc{}, &ManifestError{Reference: tag, Cause: err}
	}
	repo.Client = f.client

	desc, err := repo.Resolve(ctx, tag)
	if err != nil {
		return ManifestDoc{}, &ManifestError{Reference: tag, Cause: err}
	}

	body, err := content.FetchAll(ctx, repo, desc)
	if err != nil {
		return ManifestDoc{}, &ManifestError{Reference: tag, Cause: err}
	}

	return parseManifestBody(desc.MediaType, body, tag)
}

// parseManifestBody parses the body as an OCI image index first, then
// falls back to single-platform; an unrecognized media type is still
// given one attempt at index parsing before being treated as
// single-platform, since some registries omit or vary the media type.
func parseManifestBody(mediaType string, body []byte, tag string) (ManifestDoc, error) {
	switch mediaType {
	case v1.MediaTypeImageIndex, "application/vnd.docker.distribution.manifest.list.v2+json":
		var index v1.Index
		if err := json.Unmarshal(body, &index); err != nil {
			return ManifestDoc{}, &ManifestError{Reference: tag, Cause: errors.Wrap(err, "parsing image index")}
		}
		children := make([]ManifestRef, 0, len(index.Manifests))
		for _, m := range index.Manifests {
			ref := ManifestRef{Digest: string(m.Digest)}
			if m.Platform != nil {
				ref.Platform = Platform{
					OS:           m.Platform.OS,
					Architecture: m.Platform.Architecture,
					Variant:      m.Platform.Variant,
				}
			}
			children = append(children, ref)
		}
		return ManifestDoc{IsIndex: true, Children: children}, nil
	default:
		var index v1.Index
		if err := json.Unmarshal(body, &index); err == nil && len(index.Manifests) > 0 {
			children := make([]ManifestRef, 0, len(index.Manifests))
			for _, m := range index.Manifests {
				ref := ManifestRef{Digest: string(m.Digest)}
				if m.Platform != nil {
					ref.Platform = Platform{
						OS:           m.Platform.OS,
						Architecture: m.Platform.Architecture,
						Variant:      m.Platform.Variant,
					}
				}
				children = append(children, ref)
			}
			return ManifestDoc{IsIndex: true, Children: children}, nil
		}
		return ManifestDoc{IsIndex: false}, nil
	}
}
