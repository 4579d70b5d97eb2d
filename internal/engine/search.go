package engine

import (
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128

	// maxSearchDepth leaves headroom in the ply-indexed tables for quiescence.
	maxSearchDepth = MaxPly / 2

	// pollInterval is how many nodes pass between budget checks; a power of two.
	pollInterval = 1024
)

// EndCondition bounds a search. Zero fields are unlimited.
type EndCondition struct {
	MaxDepth int
	MaxNodes uint64
	MaxTime  time.Duration
}

// Result describes the deepest fully completed iteration of a search.
// Score is from the side to move's point of view.
type Result struct {
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	QNodes  uint64
	Elapsed time.Duration
	PV      []board.Move
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	next := pv.length[ply+1]
	for i := ply + 1; i < next; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = next
}

func (pv *PVTable) line() []board.Move {
	return append([]board.Move(nil), pv.moves[0][:pv.length[0]]...)
}

// Searcher performs iterative-deepening alpha-beta search over a single
// position. A Searcher is not safe for concurrent searches; Stop may be
// called from any goroutine.
type Searcher struct {
	eval    Evaluator
	orderer *MoveOrderer
	log     logr.Logger
	pv      PVTable

	cond    EndCondition
	start   time.Time
	nodes   uint64
	qnodes  uint64
	aborted bool

	stopFlag atomic.Bool

	// OnDepth, when set, is called after every completed iteration.
	OnDepth func(Result)
}

// NewSearcher creates a searcher. A nil evaluator selects MaterialEvaluator.
func NewSearcher(eval Evaluator, log logr.Logger) *Searcher {
	if eval == nil {
		eval = NewMaterialEvaluator()
	}
	return &Searcher{
		eval:    eval,
		orderer: NewMoveOrderer(),
		log:     log,
	}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset clears the stop flag and the killer table.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.orderer.Clear()
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes + s.qnodes
}

// FindBestMove searches pos by iterative deepening until cond is exhausted
// or Stop is called. Only completed iterations update the answer; when not
// even depth 1 completes, the first legal move is returned. pos is restored
// before returning. Result.Move is NoMove only when pos has no legal moves.
func (s *Searcher) FindBestMove(pos *board.Position, cond EndCondition) Result {
	s.cond = cond
	s.start = time.Now()
	s.nodes, s.qnodes = 0, 0
	s.aborted = false
	s.eval.SetPerspective(pos.SideToMove)

	rootMoves := append([]board.Move(nil), pos.LegalMoves().Slice()...)
	if len(rootMoves) == 0 {
		res := Result{Elapsed: time.Since(s.start)}
		if pos.InCheck() {
			res.Score = -MateScore
		}
		return res
	}

	maxDepth := cond.MaxDepth
	if maxDepth <= 0 || maxDepth > maxSearchDepth {
		maxDepth = maxSearchDepth
	}

	res := Result{Move: rootMoves[0]}
	for depth := 1; depth <= maxDepth; depth++ {
		if s.stopFlag.Load() {
			break
		}

		move, score := s.searchRoot(pos, rootMoves, depth)
		if s.aborted {
			s.log.V(2).Info("iteration aborted", "depth", depth, "nodes", s.Nodes())
			break
		}

		res = Result{
			Move:    move,
			Score:   score,
			Depth:   depth,
			Nodes:   s.nodes,
			QNodes:  s.qnodes,
			Elapsed: time.Since(s.start),
			PV:      s.pv.line(),
		}
		moveToFront(rootMoves, move)

		s.log.V(1).Info("depth complete", "depth", depth, "score", score, "move", move.String(), "nodes", s.Nodes())
		if s.OnDepth != nil {
			s.OnDepth(res)
		}

		// Early termination: found mate
		if score > MateScore-MaxPly || score < -MateScore+MaxPly {
			break
		}

		// If we've used more than half the time, don't start another iteration
		if cond.MaxTime > 0 && cond.MaxTime-res.Elapsed < res.Elapsed {
			break
		}
	}

	res.Nodes, res.QNodes = s.nodes, s.qnodes
	res.Elapsed = time.Since(s.start)
	return res
}

// searchRoot runs one full-width iteration over the root moves in order.
// The first move always becomes the initial best, so an iteration that
// completes always yields a move.
func (s *Searcher) searchRoot(pos *board.Position, moves []board.Move, depth int) (board.Move, int) {
	s.nodes++
	s.pv.length[0] = 0

	sign := 1
	if pos.SideToMove == board.Black {
		sign = -1
	}

	alpha, beta := -Infinity, Infinity
	best := moves[0]
	for _, m := range moves {
		pos.MakeMove(m)
		score := -s.negamax(pos, 1, depth, -beta, -alpha, -sign)
		undo(pos)
		if s.aborted {
			return board.NoMove, 0
		}
		if score > alpha {
			alpha = score
			best = m
			s.pv.update(0, m)
		}
	}
	return best, alpha
}

// negamax returns the score of pos for the side to move, searching until
// ply reaches maxDepth. sign is +1 when White is to move and -1 otherwise.
func (s *Searcher) negamax(pos *board.Position, ply, maxDepth, alpha, beta, sign int) int {
	if ply >= maxDepth {
		return s.quiescence(pos, ply, alpha, beta, sign)
	}

	s.nodes++
	s.pv.length[ply] = ply
	if s.budgetExhausted() {
		return 0
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		if pos.InCheck() {
			return -(MateScore - ply)
		}
		return 0
	}
	if isDraw(pos) {
		return 0
	}

	moves := ml.Slice()
	s.orderer.SortMoves(pos, moves, ply)

	for _, m := range moves {
		pos.MakeMove(m)
		score := -s.negamax(pos, ply+1, maxDepth, -beta, -alpha, -sign)
		undo(pos)

		if s.aborted {
			return 0
		}
		if score >= beta {
			if !m.IsCapture() {
				s.orderer.UpdateKillers(m, ply)
			}
			return beta
		}
		if score > alpha {
			alpha = score
			s.pv.update(ply, m)
		}
	}
	return alpha
}

// quiescence extends the search through captures only, so leaves are
// evaluated in quiet positions.
func (s *Searcher) quiescence(pos *board.Position, ply, alpha, beta, sign int) int {
	s.qnodes++
	if ply < MaxPly {
		s.pv.length[ply] = ply
	}
	if s.budgetExhausted() {
		return 0
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		if pos.InCheck() {
			return -(MateScore - ply)
		}
		return 0
	}

	standPat := sign * s.eval.Evaluate(pos)
	if standPat >= beta || ply >= MaxPly-1 {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	ml.KeepCaptures()
	captures := ml.Slice()
	s.orderer.SortCaptures(pos, captures)

	for _, m := range captures {
		pos.MakeMove(m)
		score := -s.quiescence(pos, ply+1, -beta, -alpha, -sign)
		undo(pos)

		if s.aborted {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// budgetExhausted polls the stop flag and the node and time ceilings once
// every pollInterval nodes. Once tripped it stays tripped for the iteration.
func (s *Searcher) budgetExhausted() bool {
	if s.aborted {
		return true
	}
	total := s.nodes + s.qnodes
	if total%pollInterval != 0 {
		return false
	}
	switch {
	case s.stopFlag.Load():
		s.aborted = true
	case s.cond.MaxNodes > 0 && total >= s.cond.MaxNodes:
		s.aborted = true
	case s.cond.MaxTime > 0 && time.Since(s.start) >= s.cond.MaxTime:
		s.aborted = true
	}
	return s.aborted
}

// isDraw reports draws by the fifty-move rule, repetition or bare material.
func isDraw(pos *board.Position) bool {
	return pos.HalfMoveClock >= 100 || pos.IsRepetition() || pos.IsInsufficientMaterial()
}

// undo reverts the move the search just made. An empty history here means
// the make/undo pairing is broken.
func undo(pos *board.Position) {
	if err := pos.UndoMove(); err != nil {
		panic(err)
	}
}
