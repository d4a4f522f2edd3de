// Tarnish CLI - runs a script file, or a REPL when no path is given.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/tarnish-lang/tarnish/cache"
	"github.com/tarnish-lang/tarnish/compiler"
	"github.com/tarnish-lang/tarnish/manifest"
	"github.com/tarnish-lang/tarnish/vm"
)

// sysexits-style codes, like the original driver.
const (
	exUsage    = 64
	exDataErr  = 65 // compile error
	exSoftware = 70 // runtime error
	exIOErr    = 74
)

func main() {
	trace := flag.Bool("trace", false, "Trace each executed instruction")
	disasm := flag.Bool("disasm", false, "Dump compiled chunks before running")
	gcStress := flag.Bool("gc-stress", false, "Collect on every allocation")
	gcLog := flag.Bool("gc-log", false, "Log collection cycles")
	useCache := flag.Bool("cache", false, "Use the compiled-script cache")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tarnish [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the script, or starts a REPL when no script is given.\n")
		fmt.Fprintf(os.Stderr, "Options turn settings on in addition to tarnish.toml next to the script.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(exUsage)
	}

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	m := vm.NewVM()
	m.UseCompiler(compiler.Compile)

	var mf *manifest.Manifest
	if flag.NArg() == 1 {
		dir := filepath.Dir(flag.Arg(0))
		loaded, err := manifest.LoadNear(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
			os.Exit(exDataErr)
		}
		mf = loaded
	} else {
		mf = manifest.Default()
	}

	m.TraceExecution = mf.Trace || *trace
	m.DumpCode = mf.Disasm || *disasm
	m.StressGC = mf.GC.Stress || *gcStress
	m.LogGC = mf.GC.Log || *gcLog
	m.SetInitialGCThreshold(mf.GC.InitialThreshold)

	if flag.NArg() == 1 {
		os.Exit(runFile(m, mf, flag.Arg(0), *useCache))
	}
	os.Exit(runPrompt(m))
}

func runFile(m *vm.VM, mf *manifest.Manifest, path string, useCache bool) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", path)
		return exIOErr
	}
	source := string(data)

	if useCache || mf.Cache.Enabled {
		return runCached(m, mf, source)
	}

	return exitCode(m.Interpret(source))
}

// runCached consults the compile cache before falling back to the compiler,
// populating the cache on a miss.
func runCached(m *vm.VM, mf *manifest.Manifest, source string) int {
	store, err := cache.Open(mf.CachePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		return exitCode(m.Interpret(source))
	}
	defer store.Close()

	hash := cache.HashSource(source)
	if blob, ok, err := store.Get(hash); err == nil && ok {
		fn, err := vm.UnmarshalFunction(m, blob)
		if err == nil {
			return exitCode(m.RunFunction(fn))
		}
		fmt.Fprintf(os.Stderr, "Warning: discarding stale cache entry: %v\n", err)
	}

	fn, err := compiler.Compile(source, m)
	if err != nil {
		return exDataErr
	}
	if blob, err := vm.MarshalFunction(fn); err == nil {
		if err := store.Put(hash, blob); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache write failed: %v\n", err)
		}
	}
	return exitCode(m.RunFunction(fn))
}

func runPrompt(m *vm.VM) int {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(">>> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return 0
		}
		m.Interpret(line)
	}
}

func exitCode(result vm.InterpretResult) int {
	switch result {
	case vm.InterpretCompileError:
		return exDataErr
	case vm.InterpretRuntimeError:
		return exSoftware
	default:
		return 0
	}
}
