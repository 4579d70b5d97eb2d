package uci

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

type harness struct {
	u   *UCI
	out *bytes.Buffer
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	out := &bytes.Buffer{}
	cfg.Out = out
	cfg.Log = logr.Discard()
	return &harness{u: New(engine.NewEngine(logr.Discard()), cfg), out: out}
}

// run executes each line and waits for any search it started.
func (h *harness) run(lines ...string) []string {
	h.out.Reset()
	for _, l := range lines {
		h.u.execute(l)
	}
	h.u.handleStop()
	return strings.Split(strings.TrimRight(h.out.String(), "\n"), "\n")
}

func lastLine(lines []string) string {
	return lines[len(lines)-1]
}

func TestHandshake(t *testing.T) {
	h := newHarness(t, Config{})
	lines := h.run("uci")
	assert.Equal(t, "id name chesscore", lines[0])
	assert.Equal(t, "uciok", lastLine(lines))

	assert.Equal(t, []string{"readyok"}, h.run("isready"))
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, Config{})
	assert.Equal(t, []string{"info string unknown command: xyzzy"}, h.run("xyzzy 1 2"))
	assert.Equal(t, []string{""}, h.run("   "))
}

func TestPositionCommands(t *testing.T) {
	h := newHarness(t, Config{})

	h.run("position startpos moves e2e4 e7e5 g1f3")
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", h.u.position.ToFEN())

	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	h.run("position fen " + fen + " moves e1g1")
	assert.Equal(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R4RK1 b kq - 1 1", h.u.position.ToFEN())
}

func TestPositionErrorsLeavePositionUnchanged(t *testing.T) {
	h := newHarness(t, Config{})
	h.run("position startpos moves d2d4")
	before := h.u.position.ToFEN()

	for _, cmd := range []string{
		"position fen 8/8/8 w - - 0 1",
		"position startpos moves e2e5",
		"position somewhere",
		"position",
	} {
		lines := h.run(cmd)
		require.Len(t, lines, 1, cmd)
		assert.True(t, strings.HasPrefix(lines[0], "info string"), cmd)
		assert.Equal(t, before, h.u.position.ToFEN(), cmd)
	}
}

func TestGoDepth(t *testing.T) {
	h := newHarness(t, Config{})
	lines := h.run("position startpos", "go depth 2")

	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "info depth 1 score cp "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "info depth 2 "), lines[1])

	best := strings.TrimPrefix(lastLine(lines), "bestmove ")
	_, err := board.ParseMove(best, board.NewPosition())
	assert.NoError(t, err, lastLine(lines))
}

func TestGoFindsMate(t *testing.T) {
	h := newHarness(t, Config{})
	lines := h.run("position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "go depth 3")
	assert.Contains(t, lines[0], "score mate 1")
	assert.Contains(t, lines[0], "pv a1a8")
	assert.Equal(t, "bestmove a1a8", lastLine(lines))
}

func TestGoWithoutLegalMoves(t *testing.T) {
	h := newHarness(t, Config{})
	lines := h.run("position fen 3k4/3Q4/3K4/8/8/8/8/8 b - - 0 1", "go depth 2")
	assert.Equal(t, []string{"bestmove 0000"}, lines)
}

func TestGoInfiniteAndStop(t *testing.T) {
	h := newHarness(t, Config{})
	h.u.execute("position startpos")
	h.u.execute("go infinite")
	time.Sleep(20 * time.Millisecond)
	h.u.execute("stop")

	assert.False(t, h.u.searching)
	assert.Contains(t, h.out.String(), "bestmove ")
}

func TestSetOptionStopsRunningSearch(t *testing.T) {
	store, err := storage.Open("", logr.Discard())
	require.NoError(t, err)
	defer store.Close()

	h := newHarness(t, Config{Store: store})
	h.u.execute("position startpos")
	h.u.execute("go infinite")
	time.Sleep(10 * time.Millisecond)
	h.u.execute("setoption name Contempt value 25")

	assert.False(t, h.u.searching)
	assert.Contains(t, h.out.String(), "bestmove ")

	prefs, err := store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, 25, prefs.Contempt)
}

func TestGoOptionErrors(t *testing.T) {
	h := newHarness(t, Config{})
	for _, cmd := range []string{"go depth", "go depth x", "go sideways 3", "go wtime -5"} {
		lines := h.run(cmd)
		require.Len(t, lines, 1, cmd)
		assert.True(t, strings.HasPrefix(lines[0], "info string go:"), lines[0])
	}
}

func TestParseGoOptions(t *testing.T) {
	limits, err := parseGoOptions(strings.Fields("wtime 60000 btime 50000 winc 1000 binc 500 movestogo 20 depth 7 nodes 10000"))
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, limits.Time[board.White])
	assert.Equal(t, 50*time.Second, limits.Time[board.Black])
	assert.Equal(t, time.Second, limits.Inc[board.White])
	assert.Equal(t, 500*time.Millisecond, limits.Inc[board.Black])
	assert.Equal(t, 20, limits.MovesToGo)
	assert.Equal(t, 7, limits.Depth)
	assert.Equal(t, uint64(10000), limits.Nodes)

	limits, err = parseGoOptions([]string{"infinite"})
	require.NoError(t, err)
	assert.True(t, limits.Infinite)
}

func TestSetOptions(t *testing.T) {
	store, err := storage.Open("", logr.Discard())
	require.NoError(t, err)
	defer store.Close()

	h := newHarness(t, Config{Store: store})
	assert.Equal(t, []string{""}, h.run("setoption name Depth value 4"))
	h.run("setoption name MoveTime value 250")
	h.run("setoption name Nodes value 50000")
	assert.Equal(t, engine.EndCondition{MaxDepth: 4, MaxNodes: 50000, MaxTime: 250 * time.Millisecond}, h.u.defaults)

	prefs, err := store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, 4, prefs.Depth)
	assert.Equal(t, uint64(50000), prefs.Nodes)
	assert.Equal(t, 250*time.Millisecond, prefs.MoveTime)

	h.run("setoption name Difficulty value Easy")
	assert.Equal(t, engine.DifficultySettings[engine.Easy], h.u.defaults)
	prefs, err = store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "easy", prefs.Difficulty)

	lines := h.run("setoption name Depth value deep")
	assert.True(t, strings.HasPrefix(lines[0], "info string setoption Depth:"), lines[0])

	lines = h.run("setoption name Hash value 64")
	assert.True(t, strings.HasPrefix(lines[0], "info string setoption Hash:"), lines[0])
}

func writeBook(t *testing.T) string {
	t.Helper()
	pos := board.NewPosition()
	b := book.New()
	m, err := board.ParseMove("c2c4", pos)
	require.NoError(t, err)
	b.Add(pos, m, 1)

	path := filepath.Join(t.TempDir(), "book.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = b.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func TestBookMoves(t *testing.T) {
	path := writeBook(t)
	h := newHarness(t, Config{})

	lines := h.run("setoption name BookFile value " + path)
	assert.Equal(t, "info string book loaded: 1 positions", lines[0])

	lines = h.run("position startpos", "go depth 1")
	assert.Equal(t, []string{"info string book move c2c4", "bestmove c2c4"}, lines)

	// Out of book falls through to search
	lines = h.run("position startpos moves e2e4", "go depth 1")
	assert.True(t, strings.HasPrefix(lines[0], "info depth 1"), lines[0])

	h.run("setoption name OwnBook value false")
	lines = h.run("position startpos", "go depth 1")
	assert.True(t, strings.HasPrefix(lines[0], "info depth 1"), lines[0])

	lines = h.run("setoption name BookFile value /does/not/exist.bin")
	assert.True(t, strings.HasPrefix(lines[0], "info string setoption BookFile:"), lines[0])
}

func TestGameResultRecorded(t *testing.T) {
	store, err := storage.Open("", logr.Discard())
	require.NoError(t, err)
	defer store.Close()

	h := newHarness(t, Config{Store: store})
	h.run("ucinewgame", "position startpos moves f2f3 e7e5 g2g4", "go depth 2")
	h.run("position startpos moves f2f3 e7e5 g2g4 d8h4")

	stats, err := store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, map[string]int{"black": 1}, stats.WinsByColor)

	// The same finished game is not counted twice
	h.run("position startpos moves f2f3 e7e5 g2g4 d8h4")
	stats, err = store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
}

func TestDisplayAndPerft(t *testing.T) {
	h := newHarness(t, Config{})
	lines := h.run("position fen 4k3/8/8/8/8/8/8/4K2R w K - 0 1", "d")
	out := strings.Join(lines, "\n")
	assert.Contains(t, out, "4k3/8/8/8/8/8/8/4K2R w K - 0 1")
	assert.Contains(t, out, "O-O")
	assert.Contains(t, out, "Rh8+")

	lines = h.run("position startpos", "perft 2")
	assert.Equal(t, "a2a3: 20", lines[0])
	assert.Contains(t, lines, "Nodes searched: 400")

	lines = h.run("perft zero")
	assert.Equal(t, []string{`info string perft: invalid depth "zero"`}, lines)
}

func TestRunUntilQuit(t *testing.T) {
	out := &bytes.Buffer{}
	in := strings.NewReader("isready\nposition startpos\ngo depth 1\nquit\nisready\n")
	u := New(engine.NewEngine(logr.Discard()), Config{In: in, Out: out})
	require.NoError(t, u.Run())

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "readyok"), "commands after quit are ignored")
	assert.Contains(t, got, "bestmove ")
}
