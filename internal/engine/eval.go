// Package engine implements the chess AI search engine.
package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluator scores positions for the search.
//
// Evaluate returns a score in centipawns from White's point of view; the
// search flips the sign per ply. SetPerspective tells the evaluator which
// side the engine plays so that draw-ish terms can lean towards it.
type Evaluator interface {
	Evaluate(pos *board.Position) int
	SetPerspective(c board.Color)
}

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Game phase weights per piece type; 24 is a full board of minors and majors.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const totalPhase = 24

// Piece-Square Tables, written rank 8 first as seen from White's side.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// pstIndex maps a board square to its table slot for the given color.
func pstIndex(sq board.Square, c board.Color) int {
	if c == board.White {
		return int(sq.Mirror())
	}
	return int(sq)
}

// MaterialEvaluator is the default Evaluator: material plus piece-square
// placement, with the king table tapered from middlegame to endgame.
type MaterialEvaluator struct {
	// Contempt is the score, in centipawns, the engine's side charges
	// itself for a dead-drawn material balance.
	Contempt    int
	perspective board.Color
}

// NewMaterialEvaluator returns an evaluator playing White with no contempt.
func NewMaterialEvaluator() *MaterialEvaluator {
	return &MaterialEvaluator{perspective: board.White}
}

// SetPerspective records the side the engine is playing.
func (e *MaterialEvaluator) SetPerspective(c board.Color) {
	e.perspective = c
}

// Evaluate returns the static evaluation of the position from White's perspective.
func (e *MaterialEvaluator) Evaluate(pos *board.Position) int {
	if pos.IsInsufficientMaterial() {
		return e.drawScore()
	}

	var score, kingMg, kingEg, phase int
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt < board.King; pt++ {
			bb := pos.Bitboard(pt, c)
			phase += phaseWeight[pt] * bb.PopCount()
			for bb != 0 {
				sq := bb.PopLSB()
				score += sign * (pieceValues[pt] + psts[pt][pstIndex(sq, c)])
			}
		}

		if ksq := pos.KingSquare(c); ksq != board.NoSquare {
			kingMg += sign * kingMidgamePST[pstIndex(ksq, c)]
			kingEg += sign * kingEndgamePST[pstIndex(ksq, c)]
		}
	}

	if phase > totalPhase {
		phase = totalPhase
	}
	score += (kingMg*phase + kingEg*(totalPhase-phase)) / totalPhase
	return score
}

// drawScore is the White-relative value of a dead draw: slightly negative
// for the engine's own side when contempt is set.
func (e *MaterialEvaluator) drawScore() int {
	if e.perspective == board.White {
		return -e.Contempt
	}
	return e.Contempt
}

// EvaluateMaterial returns only the material balance.
func EvaluateMaterial(pos *board.Position) int {
	return pos.Material()
}
