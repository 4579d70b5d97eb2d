package engine

import (
	"golang.org/x/exp/slices"

	"github.com/hailam/chesscore/internal/board"
)

// Move ordering bonuses
const (
	KillerBonus    = 50   // Quiet move matching a killer slot
	RecaptureBonus = 1001 // Capture landing on the square the opponent just moved to
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Higher score = search first
// Score = victimValue * 10 - attackerValue / 10
var mvvLva [6][6]int

func init() {
	var orderValue [6]int
	for pt := board.Pawn; pt <= board.King; pt++ {
		orderValue[pt] = min(board.PieceValue[pt], 1000)
	}
	for victim := board.Pawn; victim <= board.King; victim++ {
		for attacker := board.Pawn; attacker <= board.King; attacker++ {
			mvvLva[victim][attacker] = 10*orderValue[victim] - orderValue[attacker]/10
		}
	}
}

// MoveOrderer holds the ordering state that survives between sibling nodes.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move

	// Scratch space for scoring. A sort finishes before the search
	// descends, so one buffer serves every ply.
	scored [256]scoredMove
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the move orderer for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
}

// Killers returns the two killer slots at ply, most recent first.
func (mo *MoveOrderer) Killers(ply int) [2]board.Move {
	if ply >= MaxPly {
		return [2]board.Move{}
	}
	return mo.killers[ply]
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}

	// Don't store if it's already the first killer
	if mo.killers[ply][0] == m {
		return
	}

	// Shift killers
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// captureScore returns the MVV-LVA score of a capture, with the recapture
// bonus when it lands where the opponent just moved.
func captureScore(pos *board.Position, m board.Move) int {
	victim := board.Pawn
	if !m.IsEnPassant() {
		victim = pos.PieceAt(m.To()).Type()
	}
	score := mvvLva[victim][m.Piece().Type()]
	if last := pos.LastMove(); last != board.NoMove && last.To() == m.To() {
		score += RecaptureBonus
	}
	return score
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int) int {
	if m.IsCapture() {
		return captureScore(pos, m)
	}
	if ply < MaxPly && (m == mo.killers[ply][0] || m == mo.killers[ply][1]) {
		return KillerBonus
	}
	return 0
}

type scoredMove struct {
	move  board.Move
	score int
}

// SortMoves orders moves in place by descending score. The sort is stable,
// so equally scored moves keep generator order.
func (mo *MoveOrderer) SortMoves(pos *board.Position, moves []board.Move, ply int) {
	scored := mo.scored[:len(moves)]
	for i, m := range moves {
		scored[i] = scoredMove{m, mo.scoreMove(pos, m, ply)}
	}
	sortScored(scored, moves)
}

// SortCaptures orders captures by MVV-LVA alone, for quiescence.
func (mo *MoveOrderer) SortCaptures(pos *board.Position, moves []board.Move) {
	scored := mo.scored[:len(moves)]
	for i, m := range moves {
		scored[i] = scoredMove{m, captureScore(pos, m)}
	}
	sortScored(scored, moves)
}

func sortScored(scored []scoredMove, moves []board.Move) {
	slices.SortStableFunc(scored, func(a, b scoredMove) int {
		return b.score - a.score
	})
	for i := range scored {
		moves[i] = scored[i].move
	}
}

// moveToFront moves m to index 0 keeping the relative order of the rest.
func moveToFront(moves []board.Move, m board.Move) {
	for i, x := range moves {
		if x == m {
			copy(moves[1:i+1], moves[:i])
			moves[0] = m
			return
		}
	}
}
