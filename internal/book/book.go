// Package book reads Polyglot opening books.
package book

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// RecordSize is the length in bytes of one book record.
const RecordSize = 16

// ErrTruncated is returned when a book ends in the middle of a record.
var ErrTruncated = errors.New("book: truncated record")

// BookEntry represents a single book entry.
type BookEntry struct {
	Move   board.Move
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[uint64][]rawEntry

	mu  sync.Mutex
	rng *rand.Rand
}

// rawEntry keeps the undecoded move; it is resolved against the legal
// moves of the probed position.
type rawEntry struct {
	move   uint16
	weight uint16
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]rawEntry),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed makes weighted selection reproducible.
func (b *Book) Seed(seed int64) {
	b.mu.Lock()
	b.rng = rand.New(rand.NewSource(seed))
	b.mu.Unlock()
}

// Load reads a book file.
func Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b, err := LoadReader(file)
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", filename, err)
	}
	return b, nil
}

// LoadReader reads a book from r.
func LoadReader(r io.Reader) (*Book, error) {
	book := New()

	// Entry format:
	// 8 bytes: position key (big-endian)
	// 2 bytes: move (big-endian)
	// 2 bytes: weight (big-endian)
	// 4 bytes: learn data (ignored)
	var entry [RecordSize]byte

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		book.entries[key] = append(book.entries[key], rawEntry{
			move:   binary.BigEndian.Uint16(entry[8:10]),
			weight: binary.BigEndian.Uint16(entry[10:12]),
		})
	}

	return book, nil
}

// Add inserts a move for the position. It is how books are built in memory
// before being written with WriteTo.
func (b *Book) Add(pos *board.Position, m board.Move, weight uint16) {
	key := pos.PolyglotHash()
	b.entries[key] = append(b.entries[key], rawEntry{move: EncodeMove(m), weight: weight})
}

// WriteTo writes the book as fixed-size records sorted by key.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var n int64
	var rec [RecordSize]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(rec[0:8], k)
			binary.BigEndian.PutUint16(rec[8:10], e.move)
			binary.BigEndian.PutUint16(rec[10:12], e.weight)
			binary.BigEndian.PutUint32(rec[12:16], 0)
			written, err := w.Write(rec[:])
			n += int64(written)
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

var promoTypes = [5]board.PieceType{board.NoPieceType, board.Knight, board.Bishop, board.Rook, board.Queen}

// EncodeMove packs a move into the book's 16-bit layout.
// Bits:
// 0-5: to square
// 6-11: from square
// 12-14: promotion piece (0=none, 1=knight, 2=bishop, 3=rook, 4=queen)
// Castling is stored as the king capturing its own rook.
func EncodeMove(m board.Move) uint16 {
	from, to := m.From(), m.To()
	if m.IsCastling() {
		if to.File() == 6 {
			to = board.NewSquare(7, to.Rank())
		} else {
			to = board.NewSquare(0, to.Rank())
		}
	}

	var promo uint16
	for i, pt := range promoTypes {
		if i > 0 && m.Promotion() == pt {
			promo = uint16(i)
		}
	}
	return uint16(to) | uint16(from)<<6 | promo<<12
}

// decodeMove splits a packed move into squares and promotion piece,
// turning king-captures-rook castling back into the king's two-square step.
func decodeMove(data uint16) (from, to board.Square, promo board.PieceType) {
	to = board.Square(data & 63)
	from = board.Square((data >> 6) & 63)
	if p := (data >> 12) & 7; int(p) < len(promoTypes) {
		promo = promoTypes[p]
	}

	if from == board.E1 && to == board.H1 {
		to = board.G1 // White kingside
	} else if from == board.E1 && to == board.A1 {
		to = board.C1 // White queenside
	} else if from == board.E8 && to == board.H8 {
		to = board.G8 // Black kingside
	} else if from == board.E8 && to == board.A8 {
		to = board.C8 // Black queenside
	}
	return from, to, promo
}

// resolve finds the legal move matching a packed book move, or NoMove.
func resolve(legal *board.MoveList, data uint16) board.Move {
	from, to, promo := decodeMove(data)
	for _, lm := range legal.Slice() {
		if lm.From() == from && lm.To() == to && lm.Promotion() == promo {
			return lm
		}
	}
	return board.NoMove
}

// ProbeAll returns all legal book moves for the position, sorted by weight.
// Records whose move is not legal in the position are skipped.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}

	raw, ok := b.entries[pos.PolyglotHash()]
	if !ok {
		return nil
	}

	legal := pos.LegalMoves()
	result := make([]BookEntry, 0, len(raw))
	for _, e := range raw {
		if m := resolve(legal, e.move); m != board.NoMove {
			result = append(result, BookEntry{Move: m, Weight: e.weight})
		}
	}

	// Sort by weight (highest first)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}

// Probe looks up a position in the book and returns a move using weighted random selection.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	totalWeight := uint32(0)
	for _, e := range entries {
		totalWeight += uint32(e.Weight)
	}

	if totalWeight == 0 {
		// All weights are 0, just pick the first
		return entries[0].Move, true
	}

	b.mu.Lock()
	r := uint32(b.rng.Int63n(int64(totalWeight)))
	b.mu.Unlock()

	cumulative := uint32(0)
	for _, e := range entries {
		cumulative += uint32(e.Weight)
		if r < cumulative {
			return e.Move, true
		}
	}

	// Fallback to first entry
	return entries[0].Move, true
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
