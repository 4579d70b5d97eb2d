package board

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"r3k2r/p1pp1pb1/bn2Qnp1/2qPN3/1p2P3/2N5/PPPBBPPP/R3K2R b KQkq - 3 2",
	"r3k2r/8/3Q4/8/8/5q2/8/R3K2R b KQkq - 0 1",
	"8/8/1k6/2b5/2pP4/8/5K2/8 b - d3 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
}

// snapshot captures every observable field so make/undo can be compared.
type snapshot struct {
	pieces   [12]Bitboard
	occupied [2]Bitboard
	all      Bitboard
	side     Color
	castling CastlingRights
	ep       Square
	half     int
	full     int
	hash     uint64
}

func snap(p *Position) snapshot {
	return snapshot{p.Pieces, p.Occupied, p.AllOccupied, p.SideToMove, p.CastlingRights,
		p.EnPassant, p.HalfMoveClock, p.FullMoveNumber, p.Hash}
}

func assertConsistent(t *testing.T, p *Position) {
	t.Helper()
	var seen Bitboard
	for pc := WhitePawn; pc < NoPiece; pc++ {
		require.Zero(t, seen&p.Pieces[pc], "bitboards overlap at %v in %s", pc, p.ToFEN())
		seen |= p.Pieces[pc]
	}
	require.Equal(t, seen, p.AllOccupied)
	require.Equal(t, p.ComputeHash(), p.Hash, "incremental hash drifted in %s", p.ToFEN())
}

func TestMakeUndoRestoresPosition(t *testing.T) {
	for _, fen := range testFENs {
		t.Run(fen, func(t *testing.T) {
			pos, err := ParseFEN(fen)
			require.NoError(t, err)
			before := snap(pos)

			for _, m := range pos.LegalMoves().Slice() {
				pos.MakeMove(m)
				assertConsistent(t, pos)
				require.NoError(t, pos.UndoMove())
				require.Equal(t, before, snap(pos), "undo of %v", m)
			}
		})
	}
}

func TestRandomWalkKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for game := 0; game < 20; game++ {
		pos := NewPosition()
		start := snap(pos)
		played := 0
		for ply := 0; ply < 120; ply++ {
			ml := pos.LegalMoves()
			if ml.Len() == 0 {
				break
			}
			pos.MakeMove(ml.Get(rng.Intn(ml.Len())))
			played++
			assertConsistent(t, pos)

			// Every reachable position must survive a FEN round trip.
			reloaded, err := ParseFEN(pos.ToFEN())
			require.NoError(t, err)
			require.Equal(t, pos.Pieces, reloaded.Pieces)
			require.Equal(t, pos.Hash, reloaded.Hash)
		}
		for i := 0; i < played; i++ {
			require.NoError(t, pos.UndoMove())
		}
		require.Equal(t, start, snap(pos))
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	pos := NewPosition()
	err := pos.UndoMove()
	assert.True(t, errors.Is(err, ErrEmptyHistory))
}

func TestMakeMoveSpecialCases(t *testing.T) {
	t.Run("double push sets en passant", func(t *testing.T) {
		pos := NewPosition()
		m, err := ParseMove("e2e4", pos)
		require.NoError(t, err)
		assert.Equal(t, FlagDoublePush, m.Flag())
		pos.MakeMove(m)
		assert.Equal(t, E3, pos.EnPassant)
		assert.Equal(t, 0, pos.HalfMoveClock)
		assert.Equal(t, 1, pos.FullMoveNumber)
		pos.MakeMove(mustParse(t, "g8f6", pos))
		assert.Equal(t, NoSquare, pos.EnPassant)
		assert.Equal(t, 1, pos.HalfMoveClock)
		assert.Equal(t, 2, pos.FullMoveNumber)
	})

	t.Run("castling moves the rook and drops rights", func(t *testing.T) {
		pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
		require.NoError(t, err)
		pos.MakeMove(mustParse(t, "e1g1", pos))
		assert.Equal(t, WhiteRook, pos.PieceAt(F1))
		assert.Equal(t, WhiteKing, pos.PieceAt(G1))
		assert.Equal(t, NoPiece, pos.PieceAt(H1))
		assert.Equal(t, BlackKingSideCastle|BlackQueenSideCastle, pos.CastlingRights)
	})

	t.Run("capturing a rook revokes its right", func(t *testing.T) {
		pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
		require.NoError(t, err)
		pos.MakeMove(mustParse(t, "a1a8", pos))
		assert.Equal(t, WhiteKingSideCastle|BlackKingSideCastle, pos.CastlingRights)
	})

	t.Run("en passant removes the bypassed pawn", func(t *testing.T) {
		pos, err := ParseFEN("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2")
		require.NoError(t, err)
		m := mustParse(t, "e5d6", pos)
		assert.True(t, m.IsEnPassant())
		pos.MakeMove(m)
		assert.Equal(t, NoPiece, pos.PieceAt(D5))
		assert.Equal(t, WhitePawn, pos.PieceAt(D6))
	})

	t.Run("promotion swaps the pawn", func(t *testing.T) {
		pos, err := ParseFEN("1n5k/P7/8/8/8/8/8/7K w - - 0 1")
		require.NoError(t, err)
		pos.MakeMove(mustParse(t, "a7b8n", pos))
		assert.Equal(t, WhiteKnight, pos.PieceAt(B8))
		assert.Zero(t, pos.Pieces[WhitePawn])
		assert.Zero(t, pos.Pieces[BlackKnight])
	})
}

func mustParse(t *testing.T, s string, pos *Position) Move {
	t.Helper()
	m, err := ParseMove(s, pos)
	require.NoError(t, err)
	return m
}

func TestLoadFENErrors(t *testing.T) {
	cases := map[string]string{
		"too few fields":  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"too many fields": StartFEN + " extra",
		"seven ranks":     "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rank overflow":   "rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"bad piece":       "rnbqkbnr/ppppxppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"bad side":        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"bad castling":    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1",
		"bad en passant":  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
		"bad clock":       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"missing king":    "rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"split empty run": "rnbqkbnr/pppppppp/44/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	}
	for name, fen := range cases {
		t.Run(name, func(t *testing.T) {
			pos := NewPosition()
			pos.MakeMove(mustParse(t, "e2e4", pos))
			before := snap(pos)

			err := pos.LoadFEN(fen)
			var fenErr *MalformedFENError
			require.ErrorAs(t, err, &fenErr)
			assert.Equal(t, fen, fenErr.FEN)
			assert.Equal(t, before, snap(pos), "failed load must not touch the position")
			assert.Equal(t, 1, pos.Ply())
		})
	}
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		assert.Equal(t, fen, pos.ToFEN())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	pos := NewPosition()
	pos.MakeMove(mustParse(t, "e2e4", pos))
	clone := pos.Clone()
	clone.MakeMove(mustParse(t, "e7e5", clone))

	assert.Equal(t, 1, pos.Ply())
	assert.Equal(t, 2, clone.Ply())
	require.NoError(t, clone.UndoMove())
	require.NoError(t, clone.UndoMove())
	assert.Equal(t, NewPosition().Hash, clone.Hash)
	assert.NotEqual(t, pos.Hash, clone.Hash)
}

func TestRepetitionDetection(t *testing.T) {
	pos := NewPosition()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for _, s := range shuffle {
		pos.MakeMove(mustParse(t, s, pos))
	}
	assert.True(t, pos.IsRepetition())
	assert.Equal(t, Ongoing, pos.Status())

	for _, s := range shuffle {
		pos.MakeMove(mustParse(t, s, pos))
	}
	assert.Equal(t, Repetition, pos.Status())
}

func TestInsufficientMaterial(t *testing.T) {
	cases := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/2B1KB2 w - - 0 1", false},
		{"2b1k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KNN1 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
	}
	for _, tc := range cases {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err)
		assert.Equal(t, tc.want, pos.IsInsufficientMaterial(), tc.fen)
	}
}
