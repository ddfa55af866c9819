// Package warden loads workload bundles and executes them in a sandboxed
// WebAssembly runtime.
//
// A workload is a WebAssembly module whose custom sections may carry an
// archive of auxiliary files. The archive becomes the workload's entire
// visible file system, mounted read-only at the root; an optional config.yaml
// at the archive root declares how the standard streams bind to the host.
package warden

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wardenrun/warden/internal/bundle"
	"github.com/wardenrun/warden/internal/virtfs"
)

// GuestRoot is the mount name under which the workload sees its file system.
const GuestRoot = "/"

// entryPoints are the export names tried to locate the workload entry point,
// in order: the anonymous default export, then the WASI command entry.
var entryPoints = [...]string{"", "_start"}

// Workload is one parsed bundle prepared for execution.
type Workload struct {
	ID     uuid.UUID
	Name   string
	Deploy DeployConfig
	code   []byte
	fsys   *virtfs.FS
}

// Load parses a workload bundle. The module container is walked for warden's
// custom sections, every archive section replays into the workload file
// system, and the deployment configuration is resolved from it.
func Load(name string, code []byte) (*Workload, error) {
	fsys := virtfs.New()
	err := bundle.Parse(code, map[string]bundle.Handler{
		bundle.ArchiveSection: fsys.AddArchive,
		bundle.ManifestSection: func([]byte) error {
			return nil // reserved
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstantiation, err)
	}
	deploy, err := ResolveDeployConfig(fsys)
	if err != nil {
		return nil, err
	}
	return &Workload{
		ID:     uuid.New(),
		Name:   name,
		Deploy: deploy,
		code:   code,
		fsys:   fsys,
	}, nil
}

// FS returns the workload's file system.
func (w *Workload) FS() *virtfs.FS { return w.fsys }

// Code returns the raw bytes of the module container.
func (w *Workload) Code() []byte { return w.code }

// Runner executes workloads. The zero value is usable; fields customize the
// guest environment and the engine configuration.
type Runner struct {
	// Args is the guest argv. When empty, it defaults to the workload name.
	Args []string
	// Env is the guest environment as "KEY=value" pairs.
	Env []string
	// Runtime configures the engine; nil selects the default configuration.
	Runtime wazero.RuntimeConfig
	// PrepareCompiled, when set, observes the compiled module before it is
	// instantiated. Profilers hook in here.
	PrepareCompiled func(wazero.CompiledModule) error
}

// Run executes the workload to completion and returns its typed results. The
// engine instance is private to the call, so concurrent runs are independent.
func (r *Runner) Run(ctx context.Context, workload *Workload) ([]Value, error) {
	config := r.Runtime
	if config == nil {
		config = wazero.NewRuntimeConfig()
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, config.WithCloseOnContextDone(true))
	defer runtime.Close(ctx)
	return r.run(ctx, runtime, workload)
}

func (r *Runner) run(ctx context.Context, runtime wazero.Runtime, workload *Workload) ([]Value, error) {
	streams, err := bindStdio(workload.Deploy.Stdio, workload.fsys)
	if err != nil {
		return nil, err
	}
	defer streams.Close()

	compiled, err := runtime.CompileModule(ctx, workload.code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstantiation, err)
	}
	defer compiled.Close(ctx)

	if r.PrepareCompiled != nil {
		if err := r.PrepareCompiled(compiled); err != nil {
			return nil, err
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstantiation, err)
	}

	args := r.Args
	if len(args) == 0 {
		args = []string{workload.Name}
	}
	config := wazero.NewModuleConfig().
		WithName("").
		WithArgs(args...).
		WithFSConfig(wazero.NewFSConfig().WithFSMount(workload.fsys, GuestRoot)).
		WithStartFunctions() // the entry point is invoked explicitly below
	for _, env := range r.Env {
		k, v, _ := strings.Cut(env, "=")
		config = config.WithEnv(k, v)
	}
	if streams.stdin != nil {
		config = config.WithStdin(streams.stdin)
	}
	if streams.stdout != nil {
		config = config.WithStdout(streams.stdout)
	}
	if streams.stderr != nil {
		config = config.WithStderr(streams.stderr)
	}

	module, err := runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstantiation, err)
	}
	defer module.Close(ctx)

	var entry api.Function
	for _, name := range entryPoints {
		if entry = module.ExportedFunction(name); entry != nil {
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: module exports none of %q", ErrExportNotFound, entryPoints)
	}

	results, err := entry.Call(ctx)
	if err != nil {
		var exit *sys.ExitError
		switch {
		case !errors.As(err, &exit):
			return nil, fmt.Errorf("%w: %v", ErrCall, err)
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", ErrCall, ctx.Err())
		case exit.ExitCode() != 0:
			return nil, ExitError(exit.ExitCode())
		default:
			// The workload exited cleanly before returning; there are no
			// result values in that case.
			return nil, nil
		}
	}
	return decodeValues(entry.Definition().ResultTypes(), results)
}

// Run parses and executes a workload bundle in one call, the common path for
// programs embedding warden.
func Run(ctx context.Context, code []byte, args, env []string) ([]Value, error) {
	workload, err := Load("workload", code)
	if err != nil {
		return nil, err
	}
	runner := Runner{Args: args, Env: env}
	return runner.Run(ctx, workload)
}
