package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	pprof "github.com/google/pprof/profile"
	"github.com/stealthrocket/wzprof"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"

	"github.com/wardenrun/warden/internal/human"
	"github.com/wardenrun/warden/internal/warden"
)

const runUsage = `
Usage:	warden run [options] [--] <bundle> [args...]

   The run command executes a workload bundle to completion. The bundle
   argument is a file path, or the name of a bundle previously fetched with
   'warden pull'. Result values returned by the workload entry point are
   printed to stdout, one per line.

   The stdio policy declared in the bundle's config.yaml applies unless
   overridden by the --stdin, --stdout and --stderr flags, which use the same
   syntax as the configuration file.

Example:

   $ warden run --stdin bundle:input.txt --stdout inherit app.wasm

Options:
   -c, --config path      Path to the warden configuration file (overrides WARDENCONFIG)
       --cpuprofile path  Write a CPU profile of the workload to the given file
   -e, --env name=value   Pass an environment variable to the workload
   -h, --help             Show this usage information
       --memprofile path  Write a memory profile of the workload to the given file
       --stdin policy     Override the stdin policy (bundle:<path>, file:<path>, inherit, null)
       --stdout policy    Override the stdout policy (file:<path>, inherit, null)
       --stderr policy    Override the stderr policy (file:<path>, inherit, null)
   -T, --trace            Enable strace-like logging of host function calls
   -v, --verbose          Print the workload id before execution
`

func run(ctx context.Context, args []string) error {
	var (
		envs       stringList
		stdin      warden.InputPolicy
		stdout     warden.OutputPolicy
		stderr     warden.OutputPolicy
		cpuProfile human.Path
		memProfile human.Path
		trace      bool
		verbose    bool
	)

	flagSet := newFlagSet("warden run", runUsage)
	customVar(flagSet, &envs, "e", "env")
	customVar(flagSet, &stdin, "stdin")
	customVar(flagSet, &stdout, "stdout")
	customVar(flagSet, &stderr, "stderr")
	customVar(flagSet, &cpuProfile, "cpuprofile")
	customVar(flagSet, &memProfile, "memprofile")
	boolVar(flagSet, &trace, "T", "trace")
	boolVar(flagSet, &verbose, "v", "verbose")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	args = flagSet.Args()
	if len(args) == 0 {
		return errors.New("missing bundle argument")
	}

	code, err := loadBundle(args[0])
	if err != nil {
		return err
	}
	workload, err := warden.Load(filepath.Base(args[0]), code)
	if err != nil {
		return err
	}

	// Flag overrides replace the bundle's declared policy, including
	// overriding back to null, so only flags that were given apply.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stdin":
			workload.Deploy.Stdio.Stdin = stdin
		case "stdout":
			workload.Deploy.Stdio.Stdout = stdout
		case "stderr":
			workload.Deploy.Stdio.Stderr = stderr
		}
	})

	config, err := loadConfig()
	if err != nil {
		return err
	}
	runtimeConfig := wazero.NewRuntimeConfig()
	cache, err := config.OpenCache()
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close(ctx)
		runtimeConfig = runtimeConfig.WithCompilationCache(cache)
	}

	runner := warden.Runner{
		Args:    args,
		Env:     envs,
		Runtime: runtimeConfig,
	}

	var listeners []experimental.FunctionListenerFactory
	if trace {
		listeners = append(listeners, logging.NewHostLoggingListenerFactory(os.Stderr, logging.LogScopeAll))
	}

	var profiling *wzprof.Profiling
	var cpu *wzprof.CPUProfiler
	var mem *wzprof.MemoryProfiler
	if cpuProfile != "" || memProfile != "" {
		profiling = wzprof.ProfilingFor(workload.Code())
		if cpuProfile != "" {
			cpu = profiling.CPUProfiler()
			listeners = append(listeners, cpu)
		}
		if memProfile != "" {
			mem = profiling.MemoryProfiler()
			listeners = append(listeners, mem)
		}
		runner.PrepareCompiled = func(compiled wazero.CompiledModule) error {
			if err := profiling.Prepare(compiled); err != nil {
				return err
			}
			if cpu != nil {
				cpu.StartProfile()
			}
			return nil
		}
	}
	if len(listeners) > 0 {
		ctx = context.WithValue(ctx,
			experimental.FunctionListenerFactoryKey{},
			experimental.MultiFunctionListenerFactory(listeners...),
		)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if verbose {
		perrorf("%s", workload.ID)
	}

	startTime := time.Now()
	values, err := runner.Run(ctx, workload)

	if profiling != nil {
		werr := writeProfiles(cpu, mem, cpuProfile, memProfile, startTime, time.Since(startTime))
		if err == nil {
			err = werr
		} else if werr != nil {
			perrorf("WARN: %s", werr)
		}
	}

	if err != nil {
		var exit warden.ExitError
		if errors.As(err, &exit) {
			return exitCode(uint32(exit))
		}
		return err
	}

	for _, value := range values {
		fmt.Println(value)
	}
	return nil
}

func writeProfiles(cpu *wzprof.CPUProfiler, mem *wzprof.MemoryProfiler, cpuPath, memPath human.Path, startTime time.Time, duration time.Duration) error {
	mapping := []*pprof.Mapping{{
		ID:   1,
		File: "module.wasm",
	}}
	write := func(p *pprof.Profile, path human.Path, kind string) error {
		p.Mapping = mapping
		p.TimeNanos = startTime.UnixNano()
		p.DurationNanos = int64(duration)
		resolved, err := path.Resolve()
		if err != nil {
			return err
		}
		perrorf("==> writing %s profile to %s", kind, resolved)
		return wzprof.WriteProfile(resolved, p)
	}
	if cpu != nil {
		if err := write(cpu.StopProfile(1.0), cpuPath, "cpu"); err != nil {
			return err
		}
	}
	if mem != nil {
		if err := write(mem.NewProfile(1.0), memPath, "memory"); err != nil {
			return err
		}
	}
	return nil
}
