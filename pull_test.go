package main

import (
	"testing"

	"github.com/wardenrun/warden/internal/assert"
)

var pullTests = tests{
	"show the pull command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "pull", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden pull ")
	},

	"pulling without an image argument causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "pull")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: warden pull: ")
	},

	"pulling an invalid image reference causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "pull", "this is not a valid reference")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: warden pull: ")
	},

	"pulling from an unreachable registry causes an error": func(t *testing.T) {
		_, _, exitCode := runWarden(t, "pull", "localhost:1/workloads/app:v1")
		assert.Equal(t, exitCode, 1)
	},
}
