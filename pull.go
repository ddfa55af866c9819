package main

import (
	"context"
	"errors"

	"github.com/wardenrun/warden/internal/warden"
)

const pullUsage = `
Usage:	warden pull [options] [--] <image>

   The pull command fetches a bundle image from an OCI registry and records it
   in the local bundle store. Stored bundles run by name:

   $ warden pull registry.example.com/workloads/app:v1
   $ warden run registry.example.com/workloads/app:v1

Options:
   -c, --config path  Path to the warden configuration file (overrides WARDENCONFIG)
   -h, --help         Show this usage information
`

func pull(ctx context.Context, args []string) error {
	flagSet := newFlagSet("warden pull", pullUsage)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	args = flagSet.Args()
	if len(args) != 1 {
		return errors.New("expected exactly one image argument")
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := warden.OpenStore(config)
	if err != nil {
		return err
	}
	return store.Pull(ctx, args[0])
}
