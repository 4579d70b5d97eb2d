package engine

import (
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
)

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // ~2-3 ply, 500ms
	Medium                   // ~4-5 ply, 2s
	Hard                     // ~6+ ply, 5s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]EndCondition{
	Easy:   {MaxDepth: 3, MaxTime: 500 * time.Millisecond},
	Medium: {MaxDepth: 5, MaxTime: 2 * time.Second},
	Hard:   {MaxDepth: 7, MaxTime: 5 * time.Second},
}

// ParseDifficulty maps "easy", "medium" or "hard" to a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch s {
	case "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	}
	return Medium, false
}

// Engine is the chess AI engine.
type Engine struct {
	searcher   *Searcher
	evaluator  Evaluator
	difficulty Difficulty
	log        logr.Logger

	// Callbacks
	OnInfo func(Result)
}

// NewEngine creates a chess engine with the default evaluator.
func NewEngine(log logr.Logger) *Engine {
	eval := NewMaterialEvaluator()
	e := &Engine{
		searcher:   NewSearcher(eval, log.WithName("search")),
		evaluator:  eval,
		difficulty: Medium,
		log:        log,
	}
	e.searcher.OnDepth = func(r Result) {
		if e.OnInfo != nil {
			e.OnInfo(r)
		}
	}
	return e
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// SetEvaluator replaces the evaluation function used by later searches.
func (e *Engine) SetEvaluator(eval Evaluator) {
	e.evaluator = eval
	e.searcher.eval = eval
}

// Search finds the best move for the given position.
func (e *Engine) Search(pos *board.Position) Result {
	return e.SearchWithLimits(pos, DifficultySettings[e.difficulty])
}

// SearchWithLimits finds the best move with specific search limits.
// pos is mutated during the search and restored before returning.
func (e *Engine) SearchWithLimits(pos *board.Position, cond EndCondition) Result {
	e.searcher.Reset()
	return e.search(pos, cond)
}

// SearchAsync starts a search on its own goroutine and delivers the result
// on the returned channel. The stop flag is cleared before SearchAsync
// returns, so a Stop issued afterwards is never lost. pos must not be
// touched by the caller until the result arrives.
func (e *Engine) SearchAsync(pos *board.Position, cond EndCondition) <-chan Result {
	e.searcher.Reset()
	done := make(chan Result, 1)
	go func() {
		done <- e.search(pos, cond)
	}()
	return done
}

func (e *Engine) search(pos *board.Position, cond EndCondition) Result {
	res := e.searcher.FindBestMove(pos, cond)
	e.log.V(1).Info("search finished",
		"move", res.Move.String(), "score", ScoreToString(res.Score),
		"depth", res.Depth, "nodes", res.Nodes+res.QNodes, "elapsed", res.Elapsed)
	return res
}

// SetContempt sets the draw contempt of the default evaluator. It has no
// effect on other evaluators.
func (e *Engine) SetContempt(cp int) {
	if me, ok := e.evaluator.(*MaterialEvaluator); ok {
		me.Contempt = cp
	}
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the killer table.
func (e *Engine) Clear() {
	e.searcher.orderer.Clear()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return perft.CountLeaves(pos, depth)
}

// Evaluate returns the static evaluation of a position from White's side.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.evaluator.Evaluate(pos)
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateDistance returns the signed number of moves to mate encoded in score:
// positive when the side to move mates, negative when it is mated.
func MateDistance(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if score > 0 {
			return "Mate in " + strconv.Itoa(MateDistance(score))
		}
		return "Mated in " + strconv.Itoa(-MateDistance(score))
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	cp := strconv.Itoa(centipawns)
	if centipawns < 10 {
		cp = "0" + cp
	}
	return sign + strconv.Itoa(pawns) + "." + cp
}
