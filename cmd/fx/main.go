// fx checks and runs stack programs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/cache"
	"github.com/chazu/stackfx/manifest"
	"github.com/chazu/stackfx/namespace"
	"github.com/chazu/stackfx/server"
	"github.com/chazu/stackfx/vm"

	_ "github.com/tliron/commonlog/simple"
)

// pathList collects a repeatable flag.
type pathList []string

func (p *pathList) String() string     { return strings.Join(*p, ",") }
func (p *pathList) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	var nsFiles pathList
	flag.Var(&nsFiles, "ns", "Namespace file to load (repeatable)")
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	noCache := flag.Bool("no-cache", false, "Do not use the signature cache")
	httpAddr := flag.String("http", "", "Connect (HTTP/JSON) listen address for serve")
	grpcAddr := flag.String("grpc", "", "gRPC listen address for serve")
	watch := flag.Bool("watch", false, "Reload namespace files when they change (serve, lsp)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fx [options] <command> [programs...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  check   Print the stack effect of each program\n")
		fmt.Fprintf(os.Stderr, "  run     Run each program and print the resulting stack\n")
		fmt.Fprintf(os.Stderr, "  repl    Start the interactive REPL\n")
		fmt.Fprintf(os.Stderr, "  serve   Start the eval service (Connect + gRPC)\n")
		fmt.Fprintf(os.Stderr, "  lsp     Start the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "\nPrograms are read from standard input, one per line, when none are given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fx check '1 2 add'              # -- number\n")
		fmt.Fprintf(os.Stderr, "  fx -ns words.toml run '3 double' # 6\n")
		fmt.Fprintf(os.Stderr, "  fx serve -watch                  # serve, reloading stackfx.toml files\n")
	}
	flag.Parse()

	cmd := "repl"
	args := flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	} else if !*interactive && !isTerminal(os.Stdin) {
		cmd = "run"
	}

	app, err := setup(nsFiles, *verbose, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case "check":
		err = forEachProgram(args, func(program string) error {
			sig, err := app.engine.TypeOf(program)
			if err != nil {
				return err
			}
			fmt.Println(sig)
			return nil
		})
	case "run":
		err = forEachProgram(args, func(program string) error {
			vals, err := app.engine.Run(program)
			if err != nil {
				return err
			}
			fmt.Println(vm.FormatValues(vals))
			return nil
		})
	case "repl":
		err = runREPL(app.engine, app.historyPath())
	case "serve":
		err = app.serve(ctx, firstNonEmpty(*httpAddr, app.manifest.Server.HTTP), firstNonEmpty(*grpcAddr, app.manifest.Server.GRPC), *watch)
	case "lsp":
		if *watch {
			go app.watch(ctx)
		}
		err = server.NewLSP(app.engine).Run()
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the loaded project: its manifest, namespace and engine.
type app struct {
	manifest *manifest.Manifest
	found    bool // manifest came from a stackfx.toml
	files    []string
	engine   *stackfx.Engine
	store    *cache.Store
	log      commonlog.Logger
}

func setup(nsFiles []string, verbose, noCache bool) (*app, error) {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	a := &app{manifest: m, found: m != nil}
	if m == nil {
		dir, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		a.manifest = manifest.Default(dir)
	}

	verbosity := a.manifest.Log.Verbosity
	if verbose && verbosity < 1 {
		verbosity = 1
	}
	var logPath *string
	if a.manifest.Log.File != "" {
		logPath = &a.manifest.Log.File
	}
	commonlog.Configure(verbosity, logPath)
	a.log = commonlog.GetLogger("stackfx.cli")

	if a.found {
		deps, err := manifest.NewResolver(a.manifest).Resolve()
		if err != nil {
			return nil, err
		}
		a.files = manifest.NamespaceFiles(a.manifest, deps)
	}
	a.files = append(a.files, nsFiles...)

	reg, err := namespace.Load(namespace.Builtins(), a.files...)
	if err != nil {
		return nil, err
	}

	var opts []stackfx.Option
	if a.manifest.Cache.Enabled && !noCache {
		store, err := a.openCache()
		if err != nil {
			a.log.Warningf("signature cache disabled: %s", err)
		} else {
			a.store = store
			opts = append(opts, stackfx.WithCache(store))
		}
	}

	a.engine = stackfx.NewEngine(reg, opts...)
	return a, nil
}

// openCache opens the project cache, or the per-user cache outside a
// project.
func (a *app) openCache() (*cache.Store, error) {
	path := a.manifest.CachePath()
	if !a.found {
		var err error
		if path, err = cache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return cache.Open(path)
}

func (a *app) historyPath() string {
	if a.found {
		return filepath.Join(a.manifest.Dir, ".stackfx", "history")
	}
	return ""
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) watch(ctx context.Context) {
	if len(a.files) == 0 {
		a.log.Warning("nothing to watch: no namespace files")
		return
	}
	err := namespace.Watch(ctx, namespace.Builtins(), a.files, func(reg *namespace.Registry, err error) {
		if err == nil {
			a.engine.SetNamespace(reg)
		}
	})
	if err != nil {
		a.log.Errorf("watch: %s", err)
	}
}

func (a *app) serve(ctx context.Context, httpAddr, grpcAddr string, watch bool) error {
	if a.store != nil && a.found {
		// entries for older namespaces can never hit again
		cutoff := time.Now().Add(-30 * 24 * time.Hour)
		if n, err := a.store.Prune(a.engine.Namespace().Fingerprint(), cutoff); err != nil {
			a.log.Warningf("cache prune: %s", err)
		} else if n > 0 {
			a.log.Infof("pruned %d cache entries", n)
		}
	}

	// bind before starting anything so a bad address leaves nothing running
	var lis net.Listener
	if grpcAddr != "" {
		var err error
		lis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", grpcAddr, err)
		}
	}

	srv := server.New(a.engine)
	defer srv.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	run(func() error { return srv.ListenAndServe(ctx, httpAddr) })
	if lis != nil {
		run(func() error { return srv.ServeGRPC(ctx, lis) })
	}
	if watch && len(a.files) > 0 {
		run(func() error { return srv.Watch(ctx, namespace.Builtins(), a.files) })
	}

	wg.Wait()
	close(errs)
	return <-errs
}

// forEachProgram calls fn with each program in args, or with each
// non-blank line of standard input when args is empty. It stops at the
// first error.
func forEachProgram(args []string, fn func(string) error) error {
	if len(args) > 0 {
		for _, program := range args {
			if err := fn(program); err != nil {
				return err
			}
		}
		return nil
	}
	return eachLine(os.Stdin, fn)
}

func eachLine(r io.Reader, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
