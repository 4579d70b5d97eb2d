package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func mustMove(t *testing.T, s string, pos *board.Position) board.Move {
	t.Helper()
	m, err := board.ParseMove(s, pos)
	require.NoError(t, err)
	return m
}

func TestBookLoadAndProbe(t *testing.T) {
	// Create a simple test book in memory
	// Entry format: 8 bytes key + 2 bytes move + 2 bytes weight + 4 bytes learn
	// The key is the published Polyglot key of the starting position.
	pos := board.NewPosition()
	startKey := uint64(0x463b96181691fc9c)

	// e2 = 12, e4 = 28; move = to | from << 6
	e2e4Encoded := uint16(28 | 12<<6)

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, startKey)
	binary.Write(&buf, binary.BigEndian, e2e4Encoded)
	binary.Write(&buf, binary.BigEndian, uint16(100)) // weight
	binary.Write(&buf, binary.BigEndian, uint32(0))   // learn

	book, err := LoadReader(&buf)
	if err != nil {
		t.Fatalf("Failed to load book: %v", err)
	}

	if book.Size() != 1 {
		t.Errorf("Expected book size 1, got %d", book.Size())
	}

	// Probe the book
	move, found := book.Probe(pos)
	if !found {
		t.Fatal("Expected to find move in book")
	}

	if move.From() != board.E2 || move.To() != board.E4 {
		t.Errorf("Expected e2e4, got %s", move.String())
	}
	if move.Flag() != board.FlagDoublePush {
		t.Errorf("Expected the generator's double-push flag, got %v", move.Flag())
	}
}

func TestBookMiss(t *testing.T) {
	book := New()
	pos := board.NewPosition()

	move, found := book.Probe(pos)
	if found {
		t.Error("Expected book miss on empty book")
	}
	if move != board.NoMove {
		t.Errorf("Expected NoMove on miss, got %s", move.String())
	}

	var nilBook *Book
	_, found = nilBook.Probe(pos)
	assert.False(t, found)
	assert.Zero(t, nilBook.Size())
}

func TestTruncatedBook(t *testing.T) {
	_, err := LoadReader(bytes.NewReader(make([]byte, RecordSize+3)))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEncodeMove(t *testing.T) {
	tests := []struct {
		fen  string
		move string
		want uint16
	}{
		{board.StartFEN, "g1f3", uint16(21 | 6<<6)},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", uint16(7 | 4<<6)},
		{"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8", uint16(56 | 60<<6)},
		{"1n5k/P7/8/8/8/8/8/7K w - - 0 1", "a7a8q", uint16(56 | 48<<6 | 4<<12)},
		{"1n5k/P7/8/8/8/8/8/7K w - - 0 1", "a7b8n", uint16(57 | 48<<6 | 1<<12)},
	}
	for _, tc := range tests {
		pos, err := board.ParseFEN(tc.fen)
		require.NoError(t, err)
		m := mustMove(t, tc.move, pos)
		assert.Equal(t, tc.want, EncodeMove(m), tc.move)

		legal := pos.LegalMoves()
		assert.Equal(t, m, resolve(legal, EncodeMove(m)), tc.move)
	}
}

func TestWriteAndReload(t *testing.T) {
	pos := board.NewPosition()
	b := New()
	b.Add(pos, mustMove(t, "e2e4", pos), 60)
	b.Add(pos, mustMove(t, "d2d4", pos), 40)

	after := pos.Clone()
	after.MakeMove(mustMove(t, "e2e4", after))
	b.Add(after, mustMove(t, "c7c5", after), 10)

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3*RecordSize), n)

	loaded, err := LoadReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())

	entries := loaded.ProbeAll(pos)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2e4", entries[0].Move.String())
	assert.Equal(t, uint16(60), entries[0].Weight)
	assert.Equal(t, "d2d4", entries[1].Move.String())

	reply, ok := loaded.Probe(after)
	require.True(t, ok)
	assert.Equal(t, "c7c5", reply.String())
}

func TestProbeSkipsIllegalRecords(t *testing.T) {
	pos := board.NewPosition()
	b := New()
	key := pos.PolyglotHash()
	b.entries[key] = append(b.entries[key], rawEntry{move: uint16(36 | 12<<6), weight: 500}) // e2e5
	b.Add(pos, mustMove(t, "g1f3", pos), 1)

	entries := b.ProbeAll(pos)
	require.Len(t, entries, 1)
	assert.Equal(t, "g1f3", entries[0].Move.String())
}

func TestWeightedProbeIsSeedable(t *testing.T) {
	pos := board.NewPosition()
	b := New()
	b.Add(pos, mustMove(t, "e2e4", pos), 3)
	b.Add(pos, mustMove(t, "d2d4", pos), 1)
	b.Add(pos, mustMove(t, "c2c4", pos), 0)

	draw := func() []string {
		b.Seed(42)
		var out []string
		for i := 0; i < 50; i++ {
			m, ok := b.Probe(pos)
			require.True(t, ok)
			out = append(out, m.String())
		}
		return out
	}

	first := draw()
	assert.Equal(t, first, draw())
	assert.Contains(t, first, "e2e4")
	assert.Contains(t, first, "d2d4")
	assert.NotContains(t, first, "c2c4", "zero-weight moves are never drawn")
}
