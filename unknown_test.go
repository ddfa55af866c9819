package main

import (
	"testing"

	"github.com/wardenrun/warden/internal/assert"
)

var unknownTests = tests{
	"invoking an unknown command causes a usage error": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.HasPrefix(t, stderr, "warden whatever: unknown command\n")
	},
}
