package perft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestCountLeaves(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
		want  uint64
		long  bool
	}{
		{"start d1", board.StartFEN, 1, 20, false},
		{"start d3", board.StartFEN, 3, 8902, false},
		{"start d5", board.StartFEN, 5, 4865609, true},
		{"start d6", board.StartFEN, 6, 119060324, true},
		{"queen check", "r3k2r/p1pp1pb1/bn2Qnp1/2qPN3/1p2P3/2N5/PPPBBPPP/R3K2R b KQkq - 3 2", 1, 5, false},
		{"castling under fire", "r3k2r/8/3Q4/8/8/5q2/8/R3K2R b KQkq - 0 1", 4, 1720476, true},
		{"en passant pin", "8/8/1k6/2b5/2pP4/8/5K2/8 b - d3 0 1", 6, 1440467, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.long && testing.Short() {
				t.Skip("long perft")
			}
			pos, err := board.ParseFEN(tc.fen)
			require.NoError(t, err)
			before := pos.ToFEN()

			assert.Equal(t, tc.want, CountLeaves(pos, tc.depth))
			assert.Equal(t, before, pos.ToFEN(), "perft must restore the position")
		})
	}
}

func TestDepthOneMatchesLegalCount(t *testing.T) {
	for _, fen := range []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/8/1k6/2b5/2pP4/8/5K2/8 b - d3 0 1",
	} {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)
		assert.Equal(t, uint64(pos.LegalMoves().Len()), CountLeaves(pos, 1), fen)
	}
}

func TestDivideSumsToCount(t *testing.T) {
	pos := board.NewPosition()
	entries := Divide(pos, 3)
	require.Len(t, entries, 20)
	assert.Equal(t, uint64(8902), Total(entries))
	assert.Equal(t, "a2a3", entries[0].Move.String())
}

func TestParallelDivideMatchesSerial(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	hash := pos.Hash

	serial := Divide(pos, 3)
	parallel, err := ParallelDivide(context.Background(), pos, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
	assert.Equal(t, uint64(97862), Total(parallel))
	assert.Equal(t, hash, pos.Hash)
	assert.Equal(t, 0, pos.Ply())
}

func TestParallelDivideCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParallelDivide(ctx, board.NewPosition(), 3, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortByMove(t *testing.T) {
	entries := Divide(board.NewPosition(), 1)
	SortByMove(entries)
	assert.Equal(t, "a2a3", entries[0].Move.String())
	assert.Equal(t, "h2h4", entries[len(entries)-1].Move.String())
}
