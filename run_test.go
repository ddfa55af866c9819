package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardenrun/warden/internal/assert"
	"github.com/wardenrun/warden/internal/wasmtest"
)

var runTests = tests{
	"show the run command help with the short option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "run", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden run ")
	},

	"show the run command help with the long option": func(t *testing.T) {
		stdout, _, exitCode := runWarden(t, "run", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\twarden run ")
	},

	"running without a bundle argument causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "run")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: warden run: ")
	},

	"running a name which is neither a file nor a stored bundle causes an error": func(t *testing.T) {
		_, stderr, exitCode := runWarden(t, "run", "no-such-bundle")
		assert.Equal(t, exitCode, 1)
		assert.True(t, strings.Contains(stderr, "no such file or stored bundle"))
	},

	"a workload returning the integer 1 prints the value": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		stdout, stderr, exitCode := runWarden(t, "run", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "1\n")
		assert.Equal(t, stderr, "")
	},

	"a workload returning multiple values prints one per line": func(t *testing.T) {
		path := writeFile(t, "pair.wasm", wasmtest.ReturnPair("", 7, 11))
		stdout, _, exitCode := runWarden(t, "run", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "7\n11\n")
	},

	"a workload without entry point fails with export not found": func(t *testing.T) {
		path := writeFile(t, "noexport.wasm", wasmtest.NoExports())
		stdout, stderr, exitCode := runWarden(t, "run", path)
		assert.Equal(t, exitCode, 1)
		assert.Equal(t, stdout, "")
		assert.True(t, strings.Contains(stderr, "export not found"))
	},

	"the workload exit code becomes the program exit status": func(t *testing.T) {
		path := writeFile(t, "exit3.wasm", wasmtest.Exit(3))
		stdout, _, exitCode := runWarden(t, "run", path)
		assert.Equal(t, exitCode, 3)
		assert.Equal(t, stdout, "")
	},

	"command line arguments are forwarded to the workload": func(t *testing.T) {
		path := writeFile(t, "args.wasm", wasmtest.ArgsCount())
		// argv[0] is the bundle argument, the guest sees 4 arguments.
		stdout, _, exitCode := runWarden(t, "run", path, "a", "b", "c")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "4\n")
	},

	"the guest stdout reaches the host when inherited": func(t *testing.T) {
		path := writeFile(t, "hello.wasm", wasmtest.WriteStdout("Hello, world!"))
		stdout, _, exitCode := runWarden(t, "run", "--stdout", "inherit", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "Hello, world!")
	},

	"the guest stdout is discarded by default": func(t *testing.T) {
		path := writeFile(t, "hello.wasm", wasmtest.WriteStdout("Hello, world!"))
		stdout, _, exitCode := runWarden(t, "run", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
	},

	"the guest stdout is written to a host file": func(t *testing.T) {
		path := writeFile(t, "hello.wasm", wasmtest.WriteStdout("Hello, world!"))
		out := filepath.Join(t.TempDir(), "stdout.txt")
		_, _, exitCode := runWarden(t, "run", "--stdout", "file:"+out, path)
		assert.Equal(t, exitCode, 0)

		data, err := os.ReadFile(out)
		assert.OK(t, err)
		assert.Equal(t, string(data), "Hello, world!")
	},

	"the guest stdin comes from a host file": func(t *testing.T) {
		path := writeFile(t, "echo.wasm", wasmtest.EchoStdin(64))
		in := writeFile(t, "stdin.txt", []byte("hi"))
		stdout, _, exitCode := runWarden(t, "run", "--stdin", "file:"+in, "--stdout", "inherit", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "hi")
	},

	"an invalid stdio policy causes a usage error": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		_, _, exitCode := runWarden(t, "run", "--stdin", "socket:whatever", path)
		assert.Equal(t, exitCode, 2)
	},

	"verbose prints the workload id": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		stdout, stderr, exitCode := runWarden(t, "run", "-v", path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "1\n")
		assert.NotEqual(t, stderr, "")
	},

	"profiles are written next to the results": func(t *testing.T) {
		path := writeFile(t, "one.wasm", wasmtest.ReturnI32("", 1))
		cpu := filepath.Join(t.TempDir(), "cpu.out")
		mem := filepath.Join(t.TempDir(), "mem.out")
		stdout, _, exitCode := runWarden(t, "run", "--cpuprofile", cpu, "--memprofile", mem, path)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "1\n")

		for _, profile := range []string{cpu, mem} {
			if _, err := os.Stat(profile); err != nil {
				t.Error(err)
			}
		}
	},
}
