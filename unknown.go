package main

import (
	"context"
)

const unknownCommand = `warden %s: unknown command
For a list of commands available, run 'warden help.'
`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
