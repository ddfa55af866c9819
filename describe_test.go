package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardenrun/warden/internal/assert"
	"github.com/wardenrun/warden/internal/wasmtest"
	"gopkg.in/yaml.v3"
)

var describeTests = tests{
	"show the describe command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "describe", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden describe ")
	},

	"describing without a bundle argument causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "describe")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: warden describe: ")
	},

	"describe a plain module": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		stdout, stderr, exitCode := runWarden(t, "describe", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")
		assert.HasPrefix(t, stdout, "Name:   one.wasm\n")
		assert.True(t, strings.Contains(stdout, "Stdin:  null\n"))
		assert.True(t, strings.Contains(stdout, "export"))
	},

	"describe lists the archive section and its files": func(t *testing.T) {
		module := writeFile(t, "echo.wasm", wasmtest.EchoStdin(64))
		config := writeFile(t, "config.yaml", []byte("stdio:\n  stdin: bundle:in.txt\n"))
		input := writeFile(t, "in.txt", []byte("hi"))
		output := filepath.Join(t.TempDir(), "app.wasm")

		_, _, exitCode := runWarden(t, "bundle", "-o", output, module, config, input)
		assert.Equal(t, exitCode, 0)

		stdout, _, exitCode := runWarden(t, "describe", output)
		assert.Equal(t, exitCode, 0)
		assert.True(t, strings.Contains(stdout, ".warden.archive"))
		assert.True(t, strings.Contains(stdout, "in.txt"))
		assert.True(t, strings.Contains(stdout, "config.yaml"))
		assert.True(t, strings.Contains(stdout, "Stdin:  bundle:in.txt\n"))
	},

	"the json output is machine readable": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		stdout, _, exitCode := runWarden(t, "describe", "-o", "json", path)
		assert.Equal(t, exitCode, 0)

		var desc struct {
			Name     string `json:"name"`
			Size     int64  `json:"size"`
			Sections []struct {
				Section string `json:"section"`
			} `json:"sections"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &desc))
		assert.Equal(t, desc.Name, "one.wasm")
		assert.True(t, desc.Size > 0)
		assert.True(t, len(desc.Sections) > 0)
	},

	"the yaml output is machine readable": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		stdout, _, exitCode := runWarden(t, "describe", "-o", "yaml", path)
		assert.Equal(t, exitCode, 0)

		var desc struct {
			Name string `yaml:"name"`
		}
		assert.OK(t, yaml.Unmarshal([]byte(stdout), &desc))
		assert.Equal(t, desc.Name, "one.wasm")
	},

	"an unsupported output format causes a usage error": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		_, _, exitCode := runWarden(t, "describe", "-o", "xml", path)
		assert.Equal(t, exitCode, 2)
	},
}
