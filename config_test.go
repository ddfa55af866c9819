package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wardenrun/warden/internal/assert"
	"gopkg.in/yaml.v3"
)

var configTests = tests{
	"show the config command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "config", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden config ")
	},

	"the text output shows the configuration file": func(t *testing.T) {
		stdout, stderr, exitCode := runWarden(t, "config")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")
		assert.True(t, strings.Contains(stdout, "store:"))
	},

	"the json output carries the store location": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "config", "-o", "json")
		assert.Equal(t, exitCode, 0)

		var config struct {
			Store struct {
				Location string `json:"location"`
			} `json:"store"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &config))
		assert.NotEqual(t, config.Store.Location, "")
	},

	"the yaml output carries the store location": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "config", "-o", "yaml")
		assert.Equal(t, exitCode, 0)

		var config struct {
			Store struct {
				Location string `yaml:"location"`
			} `yaml:"store"`
		}
		assert.OK(t, yaml.Unmarshal([]byte(stdout), &config))
		assert.NotEqual(t, config.Store.Location, "")
	},

	"editing without $EDITOR causes an error": func(t *testing.T) {
		t.Setenv("EDITOR", "")
		_, stderr, exitCode := runWarden(t, "config", "--edit")
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "$EDITOR is not set"))
	},
}
