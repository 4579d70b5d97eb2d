package board

import "fmt"

// Move is an immutable packed move:
// bits 0-5:   from square
// bits 6-11:  to square
// bits 12-15: flag code
// bits 16-19: moving piece (0-11)
// Two moves are equal when piece, squares and flag all match.
type Move uint32

// MoveFlag is the 4-bit move classification. Bit 0 marks a promotion,
// bit 1 a capture; bits 2-3 tell the remaining cases apart.
type MoveFlag uint8

const (
	FlagQuiet       MoveFlag = 0
	FlagDoublePush  MoveFlag = 4
	FlagKingCastle  MoveFlag = 8
	FlagQueenCastle MoveFlag = 12
	FlagCapture     MoveFlag = 2
	FlagEnPassant   MoveFlag = 6

	FlagPromoKnight MoveFlag = 1
	FlagPromoBishop MoveFlag = 5
	FlagPromoRook   MoveFlag = 9
	FlagPromoQueen  MoveFlag = 13

	FlagPromoCaptureKnight MoveFlag = 3
	FlagPromoCaptureBishop MoveFlag = 7
	FlagPromoCaptureRook   MoveFlag = 11
	FlagPromoCaptureQueen  MoveFlag = 15
)

const (
	flagPromotionBit MoveFlag = 1
	flagCaptureBit   MoveFlag = 2
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove packs a move.
func NewMove(piece Piece, from, to Square, flag MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(flag)<<12 | Move(piece)<<16
}

// PromotionFlag returns the promotion flag selecting pt, with the capture
// bit set when the promotion also captures.
func PromotionFlag(pt PieceType, capture bool) MoveFlag {
	f := flagPromotionBit | MoveFlag(pt-Knight)<<2
	if capture {
		f |= flagCaptureBit
	}
	return f
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() MoveFlag {
	return MoveFlag((m >> 12) & 0xF)
}

// Piece returns the moving piece.
func (m Move) Piece() Piece {
	return Piece((m >> 16) & 0xF)
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag()&flagPromotionBit != 0
}

// Promotion returns the promoted-to piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType(m.Flag()>>2)
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture() bool {
	return m.Flag()&flagCaptureBit != 0
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet() bool {
	return m.Flag()&(flagCaptureBit|flagPromotionBit) == 0
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	f := m.Flag()
	return f == FlagKingCastle || f == FlagQueenCastle
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// String returns the coordinate notation of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove resolves a coordinate move string against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}
	if _, err := ParseSquare(s[0:2]); err != nil {
		return NoMove, err
	}
	if _, err := ParseSquare(s[2:4]); err != nil {
		return NoMove, err
	}

	ml := pos.LegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %s in %s", s, pos.ToFEN())
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// KeepCaptures drops every non-capture from the list in place, keeping the
// order of the captures.
func (ml *MoveList) KeepCaptures() {
	n := 0
	for i := 0; i < ml.count; i++ {
		if ml.moves[i].IsCapture() {
			ml.moves[n] = ml.moves[i]
			n++
		}
	}
	ml.count = n
}
