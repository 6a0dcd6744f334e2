package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/geobridge/ffi"
	"github.com/wippyai/geobridge/internal/script"
	"github.com/wippyai/geobridge/wasmhost"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to a YAML scenario")
		wasmFile    = flag.String("wasm", "", "Path to a guest module importing \"geobridge\"")
		funcName    = flag.String("func", "run", "Guest function to call with -wasm")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		logLevel    = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
		logJSON     = flag.Bool("log-json", false, "Log as JSON")
	)
	flag.Parse()

	if *scriptFile == "" && *wasmFile == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: geobridge -script <scenario.yaml>")
		fmt.Fprintln(os.Stderr, "       geobridge -wasm <guest.wasm> [-func run]")
		fmt.Fprintln(os.Stderr, "       geobridge -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log, err := newLogger(*logLevel, *logJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	ffi.SetLogger(log.Named("ffi"))
	wasmhost.SetLogger(log.Named("wasmhost"))

	if *scriptFile != "" {
		err = runScript(*scriptFile, log)
	} else {
		err = runWasm(context.Background(), *wasmFile, *funcName, log)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func runScript(path string, log *zap.Logger) error {
	s, err := script.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	name := s.Name
	if name == "" {
		name = filepath.Base(path)
	}
	fmt.Printf("Scenario: %s\n\n", name)

	rep, err := script.NewRunner(s, os.Stdout, log.Named("script")).Run()
	if err != nil {
		return err
	}

	fmt.Printf("\n%d steps passed\n", rep.Steps)
	if rep.Open > 0 {
		fmt.Printf("%d polygons were never destroyed\n", rep.Open)
	}
	return nil
}

func runWasm(ctx context.Context, path, funcName string, log *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("instantiate WASI: %w", err)
	}

	host := wasmhost.New(wasmhost.WithLogger(log.Named("wasmhost")))
	if _, err := host.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("instantiate host: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName(filepath.Base(path)).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStartFunctions()
	mod, err := host.InstantiateGuest(ctx, rt, data, cfg)
	if err != nil {
		return fmt.Errorf("instantiate guest: %w", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(funcName)
	if fn == nil {
		return fmt.Errorf("guest does not export %q", funcName)
	}

	fmt.Printf("Calling %s()...\n", funcName)
	results, err := fn.Call(ctx)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	if len(results) > 0 {
		fmt.Printf("Result: %v\n", results)
	}

	live, blocks := host.Live(mod), host.Outstanding(mod)
	if err := host.Release(mod); err != nil {
		return err
	}
	if live > 0 || blocks > 0 {
		return fmt.Errorf("guest leaked %d polygons and %d blocks", live, blocks)
	}
	return nil
}
