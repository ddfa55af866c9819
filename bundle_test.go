package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardenrun/warden/internal/assert"
	"github.com/wardenrun/warden/internal/wasmtest"
)

var bundleTests = tests{
	"show the bundle command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "bundle", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden bundle ")
	},

	"bundling without a module argument causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "bundle", "-o", "out.wasm")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: warden bundle: ")
	},

	"bundling without an output path causes an error": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		_, stderr, exitCode := runWarden(t, "bundle", path)
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "missing output path"))
	},

	"bundling a file which is not a wasm module causes an error": func(t *testing.T) {
		path := writeFile(t, "not-wasm.txt", []byte("hello"))
		_, stderr, exitCode := runWarden(t, "bundle", "-o", filepath.Join(t.TempDir(), "out.wasm"), path)
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "malformed wasm module"))
	},

	"a bundled workload reads its stdin from the archive": func(t *testing.T) {
		module := writeFile(t, "echo.wasm", wasmtest.EchoStdin(64))
		config := writeFile(t, "config.yaml", []byte("stdio:\n  stdin: bundle:in.txt\n  stdout: inherit\n"))
		input := writeFile(t, "in.txt", []byte("hi"))
		output := filepath.Join(t.TempDir(), "app.wasm")

		_, stderr, exitCode := runWarden(t, "bundle", "-o", output, module, config, input)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		stdout, _, exitCode := runWarden(t, "run", output)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "hi")
	},

	"directories are archived recursively under their base name": func(t *testing.T) {
		module := writeFile(t, "echo.wasm", wasmtest.EchoStdin(64))
		config := writeFile(t, "config.yaml", []byte("stdio:\n  stdin: bundle:assets/data/in.txt\n  stdout: inherit\n"))

		assets := filepath.Join(t.TempDir(), "assets")
		assert.OK(t, os.MkdirAll(filepath.Join(assets, "data"), 0777))
		assert.OK(t, os.WriteFile(filepath.Join(assets, "data", "in.txt"), []byte("nested"), 0666))

		output := filepath.Join(t.TempDir(), "app.wasm")
		_, _, exitCode := runWarden(t, "bundle", "-o", output, module, config, assets)
		assert.Equal(t, exitCode, 0)

		stdout, _, exitCode := runWarden(t, "run", output)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "nested")
	},

	"compressed archives behave like uncompressed ones": func(t *testing.T) {
		for _, compression := range []string{"gzip", "zstd"} {
			module := writeFile(t, "echo.wasm", wasmtest.EchoStdin(64))
			config := writeFile(t, "config.yaml", []byte("stdio:\n  stdin: bundle:in.txt\n  stdout: inherit\n"))
			input := writeFile(t, "in.txt", []byte(compression))
			output := filepath.Join(t.TempDir(), "app.wasm")

			_, _, exitCode := runWarden(t, "bundle", "-z", compression, "-o", output, module, config, input)
			assert.Equal(t, exitCode, 0)

			stdout, _, exitCode := runWarden(t, "run", output)
			assert.Equal(t, exitCode, 0)
			assert.Equal(t, stdout, compression)
		}
	},

	"an unsupported compression format causes a usage error": func(t *testing.T) {
		module := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		_, _, exitCode := runWarden(t, "bundle", "-z", "lz4", "-o", filepath.Join(t.TempDir(), "out.wasm"), module)
		assert.Equal(t, exitCode, 2)
	},

	"bundling a module which already carries an archive causes an error": func(t *testing.T) {
		module := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		first := filepath.Join(t.TempDir(), "first.wasm")
		_, _, exitCode := runWarden(t, "bundle", "-o", first, module)
		assert.Equal(t, exitCode, 0)

		_, stderr, exitCode := runWarden(t, "bundle", "-o", filepath.Join(t.TempDir(), "second.wasm"), first)
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "already carries an archive section"))
	},

	"a bundle with an invalid configuration is rejected at build time": func(t *testing.T) {
		module := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		config := writeFile(t, "config.yaml", []byte("stdio:\n  stdout: bundle:out.txt\n"))
		_, stderr, exitCode := runWarden(t, "bundle", "-o", filepath.Join(t.TempDir(), "out.wasm"), module, config)
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "bundle validation failed"))
	},
}
