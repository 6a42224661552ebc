// weftd runs weft scripts and hosts weft sessions over the network.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/weft/config"
	"github.com/chazu/weft/server"
	"github.com/chazu/weft/state"
	"github.com/chazu/weft/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("weft.weftd")

func main() {
	configDir := flag.String("config", ".", "Directory to search upward for weft.toml")
	addr := flag.String("addr", "", "Listen address (overrides [server] addr)")
	serve := flag.Bool("serve", false, "Host sessions over Connect/gRPC")
	lsp := flag.Bool("lsp", false, "Serve the language server on stdio")
	runs := flag.Int("runs", 1, "Number of times to run the script, threading state")
	persist := flag.Bool("persist", false, "Load and save the script's state in the snapshot store")
	verbose := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: weftd [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  weftd main.wft                 # Run a script once\n")
		fmt.Fprintf(os.Stderr, "  weftd -runs 3 -persist main.wft  # Run three times, keep state\n")
		fmt.Fprintf(os.Stderr, "  weftd -serve -addr :8420       # Host sessions\n")
		fmt.Fprintf(os.Stderr, "  weftd -lsp                     # Language server on stdio\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose >= 0 {
		cfg.Log.Verbosity = *verbose
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	configureLogging(cfg)
	cfg.Apply()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *lsp || (cfg.Server.LSP && !*serve && flag.NArg() == 0):
		// stdout carries the protocol
		err = server.NewLSP(newVM(cfg, io.Discard)).Run()
	case *serve:
		err = runServer(ctx, cfg)
	case flag.NArg() == 1:
		err = runScript(ctx, cfg, flag.Arg(0), *runs, *persist)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	var path *string
	if cfg.Log.File != "" {
		file := cfg.Resolve(cfg.Log.File)
		path = &file
	}
	commonlog.Configure(cfg.Log.Verbosity, path)
}

// newVM returns a constructor for VMs configured by cfg that print to out.
func newVM(cfg *config.Config, out io.Writer) func() *vm.VM {
	files := vm.OSFileSource{Root: cfg.ScriptRoot()}
	return func() *vm.VM {
		return vm.New(vm.Options{
			MaxDepth: cfg.Runtime.MaxDepth,
			Out:      out,
			Files:    files,
		})
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	store, err := state.Open(cfg.StatePath())
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(newVM(cfg, os.Stdout), server.WithStateStore(store))
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Server.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Notice("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runScript loads filename into a VM and runs it runs times. With persist
// the state is seeded from and saved to the snapshot store under the
// script's name.
func runScript(ctx context.Context, cfg *config.Config, filename string, runs int, persist bool) error {
	// command-line paths are relative to the working directory, not the
	// script root
	path, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	v := newVM(cfg, os.Stdout)()
	if err := v.LoadScript(v.Toplevel, path); err != nil {
		return err
	}
	if errs := v.StaticErrors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s: %s\n", filename, e)
		}
		return fmt.Errorf("%s has %d static errors", filename, len(errs))
	}

	var store *state.Store
	if persist {
		if store, err = state.Open(cfg.StatePath()); err != nil {
			return err
		}
		defer store.Close()
		st, err := store.Load(ctx, filename)
		switch {
		case err == nil:
			v.SetState(st)
		case !errors.Is(err, state.ErrSnapshotNotFound):
			return err
		}
	}

	for i := 0; i < runs; i++ {
		if _, err := v.ReloadIfModified(path); err != nil {
			return err
		}
		if err := v.Run(ctx); err != nil {
			var rerr *vm.RuntimeError
			if errors.As(err, &rerr) {
				return errors.New(rerr.FormatTrace())
			}
			return err
		}
	}

	st := v.State()
	defer st.Release()
	if store != nil {
		if err := store.Save(ctx, filename, &st); err != nil {
			return err
		}
	}
	log.Infof("state after %d runs: %s", runs, st.Repr())
	return nil
}
