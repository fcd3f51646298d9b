// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package enumerator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snok/container-retention-policy/internal/auth"
	"github.com/snok/container-retention-policy/internal/matcher"
	"github.com/snok/container-retention-policy/internal/registry"
)

type stubLister struct {
	packages map[string]registry.Package
	all      []registry.Package
}

func (s *stubLister) ListPackages(ctx context.Context, account registry.Account) ([]registry.Package, error) {
	return s.all, nil
}

func (s *stubLister) GetPackage(ctx context.Context, account registry.Account, name string) (registry.Package, error) {
	pkg, ok := s.packages[name]
	if !ok {
		return registry.Package{}, assertNotFound{}
	}
	return pkg, nil
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "404" }

func TestChooseStrategy(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(FullList, ChooseStrategy(auth.KindClassicPAT))
	assert.Equal(FullList, ChooseStrategy(auth.KindInstallation))
	assert.Equal(LiteralLookup, ChooseStrategy(auth.KindTemporal))
}

func TestEnumerateFullListAppliesMatcher(t *testing.T) {
	assert := assert.New(t)
	lister := &stubLister{all: []registry.Package{{Name: "web-frontend"}, {Name: "api-backend"}}}
	m, err := matcher.New([]string{"web-*"}, true)
	assert.NoError(err)

	packages, err := Enumerate(context.Background(), lister, registry.Account{Login: "acme"}, FullList, m, nil, nil)
	assert.NoError(err)
	assert.Len(packages, 1)
	assert.Equal("web-frontend", packages[0].Name)
}

func TestEnumerateLiteralSkipsMissingPackages(t *testing.T) {
	assert := assert.New(t)
	lister := &stubLister{packages: map[string]registry.Package{
		"web-frontend": {Name: "web-frontend"},
	}}

	packages, err := Enumerate(context.Background(), lister, registry.Account{Login: "acme"}, LiteralLookup, nil, []string{"web-frontend", "missing-package"}, nil)
	assert.NoError(err)
	assert.Len(packages, 1)
	assert.Equal("web-frontend", packages[0].Name)
}
