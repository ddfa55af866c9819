package main

import (
	"testing"

	"github.com/wardenrun/warden/internal/assert"
)

var helpTests = tests{
	"calling help with an unknown command causes an error": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.HasPrefix(t, stderr, "warden whatever: unknown command\n")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := runWarden(t, "help", "-_")
		assert.Equal(t, exitCode, 2)
	},

	"show the help command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "help", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden <command> ")
	},

	"show the help command help with the long option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "help", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden <command> ")
	},

	"warden help bundle": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "bundle")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden bundle ")
		assert.Equal(t, stderr, "")
	},

	"warden help config": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "config")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden config ")
		assert.Equal(t, stderr, "")
	},

	"warden help describe": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "describe")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden describe ")
		assert.Equal(t, stderr, "")
	},

	"warden help help": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden <command> ")
		assert.Equal(t, stderr, "")
	},

	"warden help pull": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "pull")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden pull ")
		assert.Equal(t, stderr, "")
	},

	"warden help run": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "run")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden run ")
		assert.Equal(t, stderr, "")
	},

	"warden help version": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "help", "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden version\n")
		assert.Equal(t, stderr, "")
	},
}
