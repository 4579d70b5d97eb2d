// Package uci implements the text command surface used by chess GUIs.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/perft"
	"github.com/hailam/chesscore/internal/storage"
)

// Config wires the handler to its collaborators. Only In and Out are
// required.
type Config struct {
	In    io.Reader
	Out   io.Writer
	Log   logr.Logger
	Book  *book.Book
	Store *storage.Storage
	Prefs *storage.Preferences
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	in  io.Reader
	out io.Writer
	mu  sync.Mutex // serialises writes to out
	log logr.Logger

	// Book configuration
	book     *book.Book
	bookFile string
	ownBook  bool

	// Persistence
	store *storage.Storage
	prefs *storage.Preferences

	// Budget used by a bare "go"
	defaults   engine.EndCondition
	difficulty string
	contempt   int

	// Search state
	searching  bool
	searchDone chan struct{}

	// Game bookkeeping
	engineColor  board.Color
	enginePlayed bool
	recorded     bool
	gameStart    time.Time
}

// New creates a new UCI protocol handler.
func New(eng *engine.Engine, cfg Config) *UCI {
	u := &UCI{
		engine:     eng,
		position:   board.NewPosition(),
		in:         cfg.In,
		out:        cfg.Out,
		log:        cfg.Log,
		book:       cfg.Book,
		ownBook:    cfg.Book != nil,
		store:      cfg.Store,
		prefs:      cfg.Prefs,
		defaults:   engine.DifficultySettings[engine.Medium],
		difficulty: "medium",
		gameStart:  time.Now(),
	}
	if u.log.GetSink() == nil {
		u.log = logr.Discard()
	}
	if p := cfg.Prefs; p != nil {
		u.applyPreferences(p)
	}
	eng.OnInfo = u.sendInfo
	return u
}

// applyPreferences seeds the search budget and book flag from stored
// preferences.
func (u *UCI) applyPreferences(p *storage.Preferences) {
	if d, ok := engine.ParseDifficulty(p.Difficulty); ok {
		u.defaults = engine.DifficultySettings[d]
		u.difficulty = p.Difficulty
		u.engine.SetDifficulty(d)
	}
	if p.Depth > 0 {
		u.defaults.MaxDepth = p.Depth
	}
	if p.Nodes > 0 {
		u.defaults.MaxNodes = p.Nodes
	}
	if p.MoveTime > 0 {
		u.defaults.MaxTime = p.MoveTime
	}
	u.bookFile = p.BookFile
	u.ownBook = p.OwnBook && u.book != nil
	u.contempt = p.Contempt
	u.engine.SetContempt(p.Contempt)
}

// Run starts the UCI main loop. It returns after "quit" or when the input
// is exhausted, waiting for any running search to finish first.
func (u *UCI) Run() error {
	scanner := bufio.NewScanner(u.in)

	for scanner.Scan() {
		if !u.execute(scanner.Text()) {
			return nil
		}
	}
	u.handleStop()
	return scanner.Err()
}

// execute handles a single command line. It returns false on "quit".
func (u *UCI) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := parts[0]
	args := parts[1:]
	u.log.V(2).Info("command", "line", line)

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.handleDisplay()
	case "perft":
		u.handlePerft(args)
	default:
		u.send("info string unknown command: %s", cmd)
	}
	return true
}

// send writes one protocol line.
func (u *UCI) send(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name chesscore")
	u.send("id author chesscore developers")
	u.send("")
	u.send("option name OwnBook type check default %t", u.ownBook)
	u.send("option name BookFile type string default %s", orEmpty(u.bookFile))
	u.send("option name Difficulty type combo default medium var easy var medium var hard")
	u.send("option name Depth type spin default %d min 0 max 64", u.defaults.MaxDepth)
	u.send("option name Nodes type string default %d", u.defaults.MaxNodes)
	u.send("option name MoveTime type spin default %d min 0 max 3600000", u.defaults.MaxTime.Milliseconds())
	u.send("option name Contempt type spin default 0 min -200 max 200")
	u.send("uciok")
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
	u.enginePlayed = false
	u.recorded = false
	u.gameStart = time.Now()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// On any error the current position is left unchanged.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		u.send("info string position: missing argument")
		return
	}

	// Find "moves" keyword
	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:moveStart], " "))
		if err != nil {
			u.send("info string invalid fen: %v", err)
			return
		}
	default:
		u.send("info string position: expected startpos or fen, got %s", args[0])
		return
	}

	// Apply moves
	if moveStart < len(args) {
		for _, moveStr := range args[moveStart+1:] {
			move, err := board.ParseMove(moveStr, pos)
			if err != nil {
				u.send("info string invalid move %s: %v", moveStr, err)
				return
			}
			pos.MakeMove(move)
		}
	}

	u.handleStop()
	u.position = pos
	u.recordIfFinished()
}

// recordIfFinished stores the result once a game the engine took part in
// reaches a terminal position.
func (u *UCI) recordIfFinished() {
	if u.store == nil || !u.enginePlayed || u.recorded {
		return
	}
	status := u.position.Status()
	if status == board.Ongoing {
		return
	}

	u.recorded = true
	result := storage.GameResult{
		EngineColor: u.engineColor,
		Winner:      u.position.Winner(),
		Plies:       u.position.Ply(),
		Duration:    time.Since(u.gameStart),
	}
	if err := u.store.RecordGame(result); err != nil {
		u.log.Error(err, "recording game")
		return
	}
	u.log.Info("game over", "status", status.String(), "winner", result.Winner.String())
}

// gamePly is the number of half-moves played since the game started.
func gamePly(pos *board.Position) int {
	return (pos.FullMoveNumber-1)*2 + int(pos.SideToMove)
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	u.engineColor = u.position.SideToMove
	u.enginePlayed = true

	if u.ownBook {
		if move, ok := u.book.Probe(u.position); ok {
			u.send("info string book move %s", move.String())
			u.send("bestmove %s", move.String())
			return
		}
	}

	limits, err := parseGoOptions(args)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	cond := limits.EndCondition(u.position.SideToMove, gamePly(u.position))
	if !limits.Infinite && cond == (engine.EndCondition{}) {
		cond = u.defaults
	}
	u.log.V(1).Info("go", "depth", cond.MaxDepth, "nodes", cond.MaxNodes, "time", cond.MaxTime)

	// Search runs on a copy so later commands never touch its position
	pos := u.position.Clone()
	results := u.engine.SearchAsync(pos, cond)

	u.searching = true
	done := make(chan struct{})
	u.searchDone = done

	go func() {
		defer close(done)
		u.sendBestMove(pos, <-results)
	}()
}

// sendBestMove reports the search result, falling back to the first legal
// move if the result is somehow unusable.
func (u *UCI) sendBestMove(pos *board.Position, res engine.Result) {
	legal := pos.LegalMoves()
	if res.Move != board.NoMove && legal.Contains(res.Move) {
		u.send("bestmove %s", res.Move.String())
		return
	}
	if legal.Len() > 0 {
		u.log.Info("search returned no usable move, using fallback", "move", res.Move.String())
		u.send("bestmove %s", legal.Get(0).String())
		return
	}
	// Only send 0000 for checkmate/stalemate (no legal moves)
	u.send("bestmove 0000")
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) (engine.UCILimits, error) {
	var limits engine.UCILimits

	millis := func(s string) (time.Duration, error) {
		ms, err := strconv.Atoi(s)
		if err != nil || ms < 0 {
			return 0, fmt.Errorf("go: invalid time %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	for i := 0; i < len(args); i++ {
		key := args[i]
		if key == "infinite" {
			limits.Infinite = true
			continue
		}
		if key == "ponder" {
			continue
		}
		if i+1 >= len(args) {
			return limits, fmt.Errorf("go: missing value for %s", key)
		}
		value := args[i+1]
		i++

		var err error
		switch key {
		case "depth":
			limits.Depth, err = strconv.Atoi(value)
		case "nodes":
			limits.Nodes, err = strconv.ParseUint(value, 10, 64)
		case "movetime":
			limits.MoveTime, err = millis(value)
		case "wtime":
			limits.Time[board.White], err = millis(value)
		case "btime":
			limits.Time[board.Black], err = millis(value)
		case "winc":
			limits.Inc[board.White], err = millis(value)
		case "binc":
			limits.Inc[board.Black], err = millis(value)
		case "movestogo":
			limits.MovesToGo, err = strconv.Atoi(value)
		default:
			return limits, fmt.Errorf("go: unknown parameter %s", key)
		}
		if err != nil {
			return limits, fmt.Errorf("go: invalid %s %q", key, value)
		}
	}

	return limits, nil
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.Result) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))

	// Score
	if engine.IsMateScore(info.Score) {
		parts = append(parts, fmt.Sprintf("score mate %d", engine.MateDistance(info.Score)))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	nodes := info.Nodes + info.QNodes
	parts = append(parts, fmt.Sprintf("nodes %d", nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Elapsed.Milliseconds()))

	// NPS
	if info.Elapsed > 0 {
		nps := uint64(float64(nodes) / info.Elapsed.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	u.send("info %s", strings.Join(parts, " "))
}

// handleStop stops the current search.
func (u *UCI) handleStop() {
	if u.searching {
		u.engine.Stop()
		<-u.searchDone // Wait for search to finish
		u.searching = false
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	// Options feed the engine and book the running search reads
	u.handleStop()
	if err := u.setOption(strings.ToLower(name), value); err != nil {
		u.send("info string setoption %s: %v", name, err)
		return
	}
	u.savePreferences()
}

func (u *UCI) setOption(name, value string) error {
	switch name {
	case "bookfile":
		if value == "" || value == "<empty>" {
			u.book, u.bookFile, u.ownBook = nil, "", false
			return nil
		}
		b, err := book.Load(value)
		if err != nil {
			return err
		}
		u.book, u.bookFile, u.ownBook = b, value, true
		u.send("info string book loaded: %s positions", humanize.Comma(int64(b.Size())))
	case "ownbook":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		u.ownBook = on && u.book != nil
	case "difficulty":
		d, ok := engine.ParseDifficulty(strings.ToLower(value))
		if !ok {
			return fmt.Errorf("unknown difficulty %q", value)
		}
		u.engine.SetDifficulty(d)
		u.defaults = engine.DifficultySettings[d]
		u.difficulty = strings.ToLower(value)
	case "depth":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid depth %q", value)
		}
		u.defaults.MaxDepth = n
	case "nodes":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node count %q", value)
		}
		u.defaults.MaxNodes = n
	case "movetime":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return fmt.Errorf("invalid move time %q", value)
		}
		u.defaults.MaxTime = time.Duration(ms) * time.Millisecond
	case "contempt":
		cp, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid contempt %q", value)
		}
		u.contempt = cp
		u.engine.SetContempt(cp)
	default:
		return fmt.Errorf("unknown option")
	}
	return nil
}

// savePreferences persists the current option values, if a store is attached.
func (u *UCI) savePreferences() {
	if u.store == nil {
		return
	}
	if u.prefs == nil {
		u.prefs = storage.DefaultPreferences()
	}
	u.prefs.Difficulty = u.difficulty
	u.prefs.Depth = u.defaults.MaxDepth
	u.prefs.Nodes = u.defaults.MaxNodes
	u.prefs.MoveTime = u.defaults.MaxTime
	u.prefs.BookFile = u.bookFile
	u.prefs.OwnBook = u.ownBook
	u.prefs.Contempt = u.contempt
	if err := u.store.SavePreferences(u.prefs); err != nil {
		u.log.Error(err, "saving preferences")
	}
}

// handleDisplay prints the board, its FEN and hash, and the legal moves.
func (u *UCI) handleDisplay() {
	u.send("%s", u.position.String())

	moves := u.position.LegalMoves().Slice()
	san := make([]string, len(moves))
	for i, m := range moves {
		san[i] = m.ToSAN(u.position)
	}
	u.send("Legal moves (%d): %s", len(moves), strings.Join(san, " "))
	if status := u.position.Status(); status != board.Ongoing {
		u.send("Status: %s", status.String())
	}
}

// handlePerft runs a perft divide on the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			u.send("info string perft: invalid depth %q", args[0])
			return
		}
		depth = d
	}

	start := time.Now()
	entries, err := perft.ParallelDivide(context.Background(), u.position, depth, 0)
	if err != nil {
		u.send("info string perft: %v", err)
		return
	}
	elapsed := time.Since(start)

	perft.SortByMove(entries)
	for _, e := range entries {
		u.send("%s: %d", e.Move.String(), e.Nodes)
	}
	nodes := perft.Total(entries)
	u.send("")
	u.send("Nodes searched: %d", nodes)
	u.send("Time: %v", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		u.send("NPS: %s", humanize.Comma(int64(nps)))
	}
}
