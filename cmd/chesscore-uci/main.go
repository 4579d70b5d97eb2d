package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

// Default opening book file name, looked up in the data directory
const defaultBook = "book.bin"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	bookPath   = flag.String("book", "", "opening book file (overrides the stored preference)")
	dbDir      = flag.String("db", "", "preferences database directory (default: platform data dir)")
	noStore    = flag.Bool("nostore", false, "do not open the preferences database")
	verbosity  = flag.Int("v", 0, "log verbosity (0 lifecycle, 1 search, 2 debug)")
)

func main() {
	flag.Parse()

	// Protocol output owns stdout; logs go to stderr
	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "chesscore ", log.LstdFlags)).WithName("chesscore")

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		logger.Info("CPU profiling enabled", "path", profilePath)
	}

	store, prefs := openStore(logger)
	if store != nil {
		defer store.Close()
	}

	eng := engine.NewEngine(logger.WithName("engine"))

	cfg := uci.Config{
		In:    os.Stdin,
		Out:   os.Stdout,
		Log:   logger.WithName("uci"),
		Store: store,
		Prefs: prefs,
	}
	if b, path := loadBook(logger, prefs); b != nil {
		cfg.Book = b
		if prefs != nil {
			prefs.BookFile = path
		}
	}

	// Create and run UCI protocol handler
	protocol := uci.New(eng, cfg)
	if err := protocol.Run(); err != nil {
		logger.Error(err, "reading commands")
	}
}

// openStore opens the preferences database. A store that cannot be opened
// only disables persistence.
func openStore(logger logr.Logger) (*storage.Storage, *storage.Preferences) {
	if *noStore {
		return nil, nil
	}

	storeLog := logger.WithName("storage")
	var (
		store *storage.Storage
		err   error
	)
	if *dbDir != "" {
		store, err = storage.Open(*dbDir, storeLog)
	} else {
		store, err = storage.NewStorage(storeLog)
	}
	if err != nil {
		logger.Error(err, "preferences disabled")
		return nil, nil
	}

	first, err := store.IsFirstLaunch()
	if err == nil && first {
		logger.Info("first launch, writing default preferences")
		if err := store.SavePreferences(storage.DefaultPreferences()); err != nil {
			logger.Error(err, "saving default preferences")
		}
		if err := store.MarkFirstLaunchComplete(); err != nil {
			logger.Error(err, "marking first launch")
		}
	}

	prefs, err := store.LoadPreferences()
	if err != nil {
		logger.Error(err, "loading preferences, using defaults")
		prefs = storage.DefaultPreferences()
	}
	return store, prefs
}

// loadBook tries the -book flag, then the stored preference, then the
// default locations.
func loadBook(logger logr.Logger, prefs *storage.Preferences) (*book.Book, string) {
	var searchPaths []string
	if *bookPath != "" {
		searchPaths = append(searchPaths, *bookPath)
	}
	if prefs != nil && prefs.BookFile != "" {
		searchPaths = append(searchPaths, prefs.BookFile)
	}
	if dir, err := storage.GetBookDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(dir, defaultBook))
	}
	searchPaths = append(searchPaths, defaultBook)

	for _, path := range searchPaths {
		if !fileExists(path) {
			continue
		}
		b, err := book.Load(path)
		if err != nil {
			logger.Error(err, "skipping book", "path", path)
			continue
		}
		logger.Info("opening book loaded", "path", path, "positions", b.Size())
		return b, path
	}
	return nil, ""
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
