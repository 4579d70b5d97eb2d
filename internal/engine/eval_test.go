package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hailam/chesscore/internal/board"
)

func TestEvaluateStartIsBalanced(t *testing.T) {
	e := NewMaterialEvaluator()
	if got := e.Evaluate(board.NewPosition()); got != 0 {
		t.Errorf("Evaluate(start) = %d, want 0", got)
	}
}

func TestEvaluateIsColorSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", "4k3/4p3/8/8/8/8/8/4K3 b - - 0 1"},
		{"4k3/8/8/8/3N4/8/8/4K3 w - - 0 1", "4k3/8/8/3n4/8/8/8/4K3 b - - 0 1"},
		{"r3k3/8/8/8/8/8/8/4K2Q w - - 0 1", "4k2q/8/8/8/8/8/8/R3K3 b - - 0 1"},
	}
	e := NewMaterialEvaluator()
	for _, p := range pairs {
		white := mustPosition(t, p[0])
		black := mustPosition(t, p[1])
		assert.Equal(t, e.Evaluate(white), -e.Evaluate(black), p[0])
	}
}

func TestEvaluateRewardsMaterialAndCentre(t *testing.T) {
	e := NewMaterialEvaluator()
	up := e.Evaluate(mustPosition(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"))
	assert.Greater(t, up, 0)

	central := e.Evaluate(mustPosition(t, "4k3/8/8/8/3N4/8/8/4K3 w - - 0 1"))
	corner := e.Evaluate(mustPosition(t, "4k3/8/8/8/8/8/8/N3K3 w - - 0 1"))
	assert.Greater(t, central, corner)

	assert.Equal(t, 100, EvaluateMaterial(mustPosition(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")))
}

func TestContemptOnDeadDraw(t *testing.T) {
	pos := mustPosition(t, "4k3/8/8/8/8/8/8/4KB2 w - - 0 1")
	e := NewMaterialEvaluator()
	assert.Equal(t, 0, e.Evaluate(pos))

	e.Contempt = 20
	e.SetPerspective(board.White)
	assert.Equal(t, -20, e.Evaluate(pos))

	e.SetPerspective(board.Black)
	assert.Equal(t, 20, e.Evaluate(pos))
}
