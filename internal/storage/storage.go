package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"

	"github.com/hailam/chesscore/internal/board"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
)

// Preferences stores the engine's persisted settings.
type Preferences struct {
	Difficulty string        `json:"difficulty"`
	Depth      int           `json:"depth"`
	Nodes      uint64        `json:"nodes"`
	MoveTime   time.Duration `json:"move_time"`
	BookFile   string        `json:"book_file"`
	OwnBook    bool          `json:"own_book"`
	Contempt   int           `json:"contempt"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// DefaultPreferences returns default engine preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		Difficulty: "medium",
		OwnBook:    true,
	}
}

// GameStats stores game statistics
type GameStats struct {
	GamesPlayed    int            `json:"games_played"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	Draws          int            `json:"draws"`
	WinsByColor    map[string]int `json:"wins_by_color"`
	TotalPlies     int            `json:"total_plies"`
	TotalPlayTime  time.Duration  `json:"total_play_time"`
	LongestWinStrk int            `json:"longest_win_streak"`
	CurrentStreak  int            `json:"current_streak"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{
		WinsByColor: make(map[string]int),
	}
}

// GameResult represents the result of a completed game, seen from the engine.
type GameResult struct {
	EngineColor board.Color
	Winner      board.Color // NoColor for a draw
	Plies       int
	Duration    time.Duration
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db  *badger.DB
	log logr.Logger
}

// NewStorage opens the store in the platform data directory.
func NewStorage(log logr.Logger) (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir, log)
}

// Open opens the store in dir. An empty dir keeps everything in memory.
func Open(dir string, log logr.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.WithName("badger")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.V(1).Info("store opened", "dir", dir)

	return &Storage{db: db, log: log}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if this is the first launch
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SavePreferences saves engine preferences
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.UpdatedAt = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads engine preferences, returns defaults if not found
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyPreferences, prefs)
	})
	return prefs, err
}

// SaveStats saves game statistics
func (s *Storage) SaveStats(stats *GameStats) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, keyStats, stats)
	})
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyStats, stats)
	})
	return stats, err
}

// RecordGame records a completed game and updates statistics
func (s *Storage) RecordGame(result GameResult) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		stats := NewGameStats()
		if err := getJSON(txn, keyStats, stats); err != nil {
			return err
		}
		stats.apply(result)
		return setJSON(txn, keyStats, stats)
	})
	if err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	s.log.V(1).Info("game recorded", "engine", result.EngineColor.String(), "winner", result.Winner.String(), "plies", result.Plies)
	return nil
}

func (stats *GameStats) apply(result GameResult) {
	if stats.WinsByColor == nil {
		stats.WinsByColor = make(map[string]int)
	}
	stats.GamesPlayed++
	stats.TotalPlies += result.Plies
	stats.TotalPlayTime += result.Duration

	switch result.Winner {
	case board.NoColor:
		stats.Draws++
		stats.CurrentStreak = 0
	case result.EngineColor:
		stats.Wins++
		stats.CurrentStreak++
		if stats.CurrentStreak > stats.LongestWinStrk {
			stats.LongestWinStrk = stats.CurrentStreak
		}
		stats.WinsByColor[strings.ToLower(result.EngineColor.String())]++
	default:
		stats.Losses++
		stats.CurrentStreak = 0
	}
}

// GetWinRate returns the win rate as a percentage (0-100)
func (stats *GameStats) GetWinRate() float64 {
	if stats.GamesPlayed == 0 {
		return 0
	}
	return float64(stats.Wins) / float64(stats.GamesPlayed) * 100
}

// getJSON decodes key into v, leaving v untouched when the key is absent.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// badgerLogger routes badger's printf-style logging onto logr. Badger is
// chatty at info level, so only errors and warnings reach V(0).
type badgerLogger struct {
	log logr.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(nil, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.V(2).Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.V(3).Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
