package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"automancy.dev/internal/game"
	persistlog "automancy.dev/internal/persistence/log"
	"automancy.dev/internal/persistence/mapdb"
	"automancy.dev/internal/resources"
	"automancy.dev/internal/script"
	"automancy.dev/internal/transport/ws"
	"automancy.dev/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		packsDir   = flag.String("packs", "./packs", "resource pack directory (each subdirectory is one pack)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <packs>/tuning.yaml)")
		seed       = flag.Int64("seed", 1337, "simulation seed")
		mapName    = flag.String("map", "", "saved map to load at startup (optional)")
		autostart  = flag.Bool("autostart", true, "start ticking immediately")
		disableDB  = flag.Bool("disable_db", false, "disable the saved-map index db")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[automancy] ", log.LstdFlags|log.Lmicroseconds)

	reg, assets, err := resources.Load(packRoots(*packsDir))
	if err != nil {
		logger.Printf("load resources: %v", err)
		os.Exit(2)
	}
	logger.Printf("loaded %d items, %d tiles, %d functions, %d models",
		len(reg.ItemDefs), len(reg.TileDefs), len(reg.Functions), len(assets.Models))

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*packsDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Printf("load tuning: %v", err)
		os.Exit(2)
	}

	host, err := script.NewHost(reg, time.Duration(tune.ScriptBudgetMs)*time.Millisecond, logger)
	if err != nil {
		logger.Printf("compile scripts: %v", err)
		os.Exit(2)
	}
	logger.Printf("compiled %d functions", host.Len())

	_ = os.MkdirAll(*dataDir, 0o755)
	mapsDir := filepath.Join(*dataDir, "maps")

	var saves *mapdb.SQLiteIndex
	if !*disableDB {
		saves, err = mapdb.OpenSQLite(filepath.Join(mapsDir, "index.db"))
		if err != nil {
			logger.Fatalf("open map index: %v", err)
		}
		defer saves.Close()
	}

	errLog := persistlog.NewErrorLogger(*dataDir)
	defer errLog.Close()
	frameLog := persistlog.NewFrameLogger(*dataDir)
	defer frameLog.Close()

	errs := game.NewErrorStack()
	errs.SetSink(func(e game.ErrorEntry) {
		if err := errLog.WriteError(e); err != nil {
			logger.Printf("error log: %v", err)
		}
	})

	g := game.New(game.Config{Seed: *seed, Tuning: tune}, reg, host, errs, logger)
	frameSink := make(chan game.Frame, 2)
	g.SetFrameSink(frameSink)

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(g, reg, errs, saves, mapsDir, logger)

	// Frame pump: fan published frames out to subscribers and the frame log.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-frameSink:
				wsSrv.Broadcast(f)
				if err := frameLog.WriteFrame(f); err != nil {
					logger.Printf("frame log: %v", err)
				}
			}
		}
	}()

	gameDone := make(chan struct{})
	go func() {
		defer close(gameDone)
		if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("game stopped: %v", err)
		}
	}()

	if *mapName != "" {
		path := filepath.Join(mapsDir, *mapName+".zst")
		if saves != nil {
			if m, ok, err := saves.Get(*mapName); err == nil && ok {
				path = m.Path
			}
		}
		if _, err := g.Apply(ctx, game.LoadMap{Path: path}); err != nil {
			logger.Fatalf("load map %s: %v", *mapName, err)
		}
		logger.Printf("loaded map %s at tick %d", *mapName, g.Tick())
	}
	if *autostart {
		if _, err := g.Apply(ctx, game.StartGame{}); err != nil {
			logger.Fatalf("start: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		select {
		case <-ctx.Done():
		case <-gameDone:
			// QuitGame ends the scheduler; take the server down with it.
			cancel()
		}
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Printf("listening on %s (seed=%d, tps=%d)", *addr, *seed, tune.TicksPerSecond)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http: %v", err)
	}
	<-gameDone
}

// packRoots lists the pack subdirectories of dir in name order. A dir
// with no subdirectories is treated as a single pack.
func packRoots(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{dir}
	}
	var roots []string
	for _, e := range entries {
		if e.IsDir() {
			roots = append(roots, filepath.Join(dir, e.Name()))
		}
	}
	if len(roots) == 0 {
		return []string{dir}
	}
	sort.Strings(roots)
	return roots
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
