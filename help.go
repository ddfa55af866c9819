package main

import (
	"context"
	"fmt"
	"strings"
)

const helpUsage = `
Usage:	warden <command> [options]

Commands:
   bundle    Package a module and its resources into a workload bundle
   config    Print the warden configuration
   describe  Show the contents of a workload bundle
   help      Show usage information about warden commands
   pull      Fetch a bundle image from a registry into the local store
   run       Execute a workload bundle
   version   Show the warden version

Global options:
   -c, --config path  Path to the warden configuration file (overrides WARDENCONFIG)
   -h, --help         Show usage information

For help about a specific command, run 'warden help <command>'.
`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("warden help", helpUsage)
	args = parseFlags(flagSet, args)

	if len(args) == 0 {
		fmt.Println(strings.TrimSpace(helpUsage))
		return nil
	}

	var msg string
	switch cmd := args[0]; cmd {
	case "bundle":
		msg = bundleUsage
	case "config":
		msg = configUsage
	case "describe":
		msg = describeUsage
	case "help":
		msg = helpUsage
	case "pull":
		msg = pullUsage
	case "run":
		msg = runUsage
	case "version":
		msg = versionUsage
	default:
		return unknown(ctx, cmd)
	}

	fmt.Println(strings.TrimSpace(msg))
	return nil
}
