package main

import (
	"strings"
	"testing"

	"github.com/wardenrun/warden/internal/assert"
)

var versionTests = tests{
	"show the version command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "version", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden version\n")
	},

	"show the version command help with the long option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "version", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden version\n")
	},

	"the version starts with the program name": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "warden ")
		assert.Equal(t, stderr, "")
	},

	"the version number is not empty": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "version")
		assert.Equal(t, exitCode, 0)

		_, version, _ := strings.Cut(stdout, " ")
		assert.NotEqual(t, strings.TrimSpace(version), "")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := runWarden(t, "version", "-_")
		assert.Equal(t, exitCode, 2)
	},
}
