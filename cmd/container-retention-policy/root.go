// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/snok/container-retention-policy/internal/config"
	"github.com/snok/container-retention-policy/internal/logger"
	"github.com/snok/container-retention-policy/version"
)

const rootLongMessage = `container-retention-policy deletes old, filter-matched container
package versions from a GitHub Packages registry while preserving the
integrity of multi-platform (OCI image index) manifests.

To start working with the CLI, run container-retention-policy --help`

func newRootCmd(args []string) *cobra.Command {
	var flags config.Flags

	cmd := &cobra.Command{
		Use:          "container-retention-policy",
		Short:        "Delete old container package versions from a GitHub Packages registry",
		Long:         rootLongMessage,
		Version:      version.FullVersion(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Setup(logger.Config{
				Level:  envOr("LOG_LEVEL", "info"),
				Format: envOr("LOG_FORMAT", "json"),
			})

			opts, err := flags.Validate()
			if err != nil {
				return err
			}

			return run(context.Background(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Account, "account", "", "Account login, optionally prefixed with user: or org: (default org)")
	f.StringVar(&flags.Token, "token", "", "Authentication token (defaults to $GITHUB_TOKEN)")
	f.StringVar(&flags.ImageNames, "image-names", "", "Comma- or space-separated image-name glob patterns")
	f.StringVar(&flags.ImageTags, "image-tags", "", "Comma- or space-separated tag glob patterns")
	f.StringVar(&flags.ShasToSkip, "shas-to-skip", "", "Comma- or space-separated digests that must never be deleted")
	f.StringVar(&flags.TagSelection, "tag-selection", "both", "One of tagged, untagged, both")
	f.IntVar(&flags.KeepNMostRecent, "keep-n-most-recent", 0, "Number of most recent matching tagged versions to always keep")
	f.StringVar(&flags.TimestampToUse, "timestamp-to-use", "updated_at", "One of created_at, updated_at")
	f.StringVar(&flags.CutOff, "cut-off", "", "Cut-off duration expression, e.g. \"2w 3d 5h 2s\"")
	f.BoolVar(&flags.DryRun, "dry-run", false, "Log intended deletions without calling the registry")
	f.StringArrayVar(&flags.ConfigPaths, "docker-config", nil, "Docker config file path(s) used as a credential fallback")

	if err := cmd.ParseFlags(args); err != nil {
		cmd.PrintErrln(err)
	}
	return cmd
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
