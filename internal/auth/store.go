// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/credentials"
	orasauth "oras.land/oras-go/v2/registry/remote/auth"
)

// Store resolves registry credentials the same way `docker login ghcr.io`
// leaves them: read-only lookups against the docker config file(s). The
// engine only ever falls back to this when no --token/env token was given,
// so write operations (store/erase) are not exposed here.
type Store struct {
	configs []*configfile.ConfigFile
}

// NewStore loads the docker config file(s) at the given paths, or the
// default docker config location when no path is given.
func NewStore(configPaths ...string) (*Store, error) {
	if len(configPaths) == 0 {
		cfg, err := config.Load(config.Dir())
		if err != nil {
			return nil, err
		}
		if !cfg.ContainsAuth() {
			cfg.CredentialsStore = credentials.DetectDefaultStore(cfg.CredentialsStore)
		}
		return &Store{configs: []*configfile.ConfigFile{cfg}}, nil
	}

	var configs []*configfile.ConfigFile
	for _, path := range configPaths {
		cfg, err := loadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		configs = append(configs, cfg)
	}
	return &Store{configs: configs}, nil
}

func loadConfigFile(path string) (*configfile.ConfigFile, error) {
	var cfg *configfile.ConfigFile
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg = configfile.New(path)
		} else {
			return nil, err
		}
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		cfg = configfile.New(path)
		if err := cfg.LoadFromReader(file); err != nil {
			return nil, err
		}
	}

	if !cfg.ContainsAuth() {
		cfg.CredentialsStore = credentials.DetectDefaultStore(cfg.CredentialsStore)
	}
	return cfg, nil
}

// Credential iterates all the config files and returns the first non-empty
// credential for the registry host (typically ghcr.io) in a best-effort way.
// orasauth.EmptyCredential is a valid return value, not an error.
func (s *Store) Credential(_ context.Context, registry string) (orasauth.Credential, error) {
	for _, c := range s.configs {
		authConf, err := c.GetCredentialsStore(registry).Get(registry)
		if err != nil {
			return orasauth.EmptyCredential, err
		}
		cred := orasauth.Credential{
			Username:     authConf.Username,
			Password:     authConf.Password,
			AccessToken:  authConf.RegistryToken,
			RefreshToken: authConf.IdentityToken,
		}
		if cred != orasauth.EmptyCredential {
			return cred, nil
		}
	}
	return orasauth.EmptyCredential, nil
}
