// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package auth

import (
	"oras.land/oras-go/v2/registry/remote"
	orasauth "oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// ClientOptions configures the OCI client built by NewClient. RegistryHost
// scopes Credential to that host, the same way the rest of the registry
// package addresses ghcr.io explicitly rather than trusting whatever host a
// request happens to be built against.
type ClientOptions struct {
	RegistryHost    string
	Credential      orasauth.Credential
	CredentialStore *Store
}

// NewClient builds the single oras-go v2 remote.Client used everywhere this
// program talks the OCI distribution protocol. Bearer-token credentials
// resolved from --token/env take precedence; the docker-config Store is
// only consulted as a fallback. The underlying transport is oras-go's own
// retry.DefaultClient, so a manifest fetch gets the same transient-failure
// retries the OCI client ships with.
func NewClient(opts ClientOptions) remote.Client {
	client := &orasauth.Client{
		Client: retry.DefaultClient,
		Cache:  orasauth.NewCache(),
	}
	client.SetUserAgent("container-retention-policy")

	switch {
	case opts.Credential != orasauth.EmptyCredential:
		client.Credential = orasauth.StaticCredential(opts.RegistryHost, opts.Credential)
	case opts.CredentialStore != nil:
		client.Credential = opts.CredentialStore.Credential
	}
	return client
}
