package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyHistory is returned by UndoMove when no move is pending.
var ErrEmptyHistory = errors.New("board: undo with empty move history")

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	flag := WhiteQueenSideCastle
	if kingSide {
		flag = WhiteKingSideCastle
	}
	if c == Black {
		flag <<= 2
	}
	return cr&flag != 0
}

// castleMask[sq] holds the rights that survive a move touching sq.
var castleMask [64]CastlingRights

func init() {
	for sq := range castleMask {
		castleMask[sq] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castleMask[H1] &^= WhiteKingSideCastle
	castleMask[A1] &^= WhiteQueenSideCastle
	castleMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castleMask[H8] &^= BlackKingSideCastle
	castleMask[A8] &^= BlackQueenSideCastle
}

// undoRecord captures everything a move overwrites.
type undoRecord struct {
	move       Move
	captured   Piece
	capturedSq Square
	castling   CastlingRights
	enPassant  Square
	halfMove   int
	hash       uint64
}

// Position represents a complete chess position.
//
// A Position is mutated in place by MakeMove/UndoMove pairs and is not safe
// for concurrent use. Callers that need an independent traversal take a
// Clone.
type Position struct {
	// Piece bitboards indexed by Piece (type + 6*color)
	Pieces [12]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	Hash uint64

	// history is an arena: records are appended and popped, and the
	// backing array is reused across the whole search.
	history []undoRecord
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Clone returns an independent deep copy, including the undo history.
func (p *Position) Clone() *Position {
	c := *p
	c.history = make([]undoRecord, len(p.history), cap(p.history))
	copy(c.history, p.history)
	return &c
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	hist := p.history[:0]
	*p = Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		history:        hist,
	}
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	return p.pieceOf(c, sq)
}

// pieceOf finds which of c's bitboards holds sq.
func (p *Position) pieceOf(c Color, sq Square) Piece {
	bb := SquareBB(sq)
	for pc := NewPiece(Pawn, c); pc <= NewPiece(King, c); pc++ {
		if p.Pieces[pc]&bb != 0 {
			return pc
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// KingSquare returns the square of c's king, or NoSquare if it is missing.
func (p *Position) KingSquare(c Color) Square {
	return p.Pieces[NewPiece(King, c)].LSB()
}

// Bitboard returns the bitboard of pieces of type pt and color c.
func (p *Position) Bitboard(pt PieceType, c Color) Bitboard {
	return p.Pieces[NewPiece(pt, c)]
}

// toggle flips pc on sq in the piece and occupancy boards.
func (p *Position) toggle(pc Piece, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[pc] ^= bb
	p.Occupied[pc.Color()] ^= bb
	p.AllOccupied ^= bb
}

// toggleHashed is toggle plus the matching hash update.
func (p *Position) toggleHashed(pc Piece, sq Square) {
	p.toggle(pc, sq)
	p.Hash ^= zobristPiece[pc][sq]
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty
	for pc := WhitePawn; pc < NoPiece; pc++ {
		p.Occupied[pc.Color()] |= p.Pieces[pc]
	}
	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// castleRookSquares returns the rook's origin and destination for a
// castling king move landing on kingTo.
func castleRookSquares(kingTo Square) (from, to Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default:
		return A8, D8
	}
}

// MakeMove applies m without any legality check and pushes an undo record.
func (p *Position) MakeMove(m Move) {
	from, to, flag, pc := m.From(), m.To(), m.Flag(), m.Piece()
	us := p.SideToMove

	rec := undoRecord{
		move:       m,
		captured:   NoPiece,
		capturedSq: NoSquare,
		castling:   p.CastlingRights,
		enPassant:  p.EnPassant,
		halfMove:   p.HalfMoveClock,
		hash:       p.Hash,
	}

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	switch {
	case flag == FlagEnPassant:
		capSq := to - 8
		if us == Black {
			capSq = to + 8
		}
		rec.captured, rec.capturedSq = NewPiece(Pawn, us.Other()), capSq
		p.toggleHashed(rec.captured, capSq)
	case m.IsCapture():
		if victim := p.pieceOf(us.Other(), to); victim != NoPiece {
			rec.captured, rec.capturedSq = victim, to
			p.toggleHashed(victim, to)
		}
	}

	p.toggleHashed(pc, from)
	if m.IsPromotion() {
		p.toggleHashed(NewPiece(m.Promotion(), us), to)
	} else {
		p.toggleHashed(pc, to)
	}

	switch flag {
	case FlagDoublePush:
		p.EnPassant = Square((int(from) + int(to)) / 2)
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	case FlagKingCastle, FlagQueenCastle:
		rf, rt := castleRookSquares(to)
		rook := NewPiece(Rook, us)
		p.toggleHashed(rook, rf)
		p.toggleHashed(rook, rt)
	}

	if rights := p.CastlingRights & castleMask[from] & castleMask[to]; rights != p.CastlingRights {
		p.Hash ^= castlingKey(p.CastlingRights ^ rights)
		p.CastlingRights = rights
	}

	if pc.Type() == Pawn || rec.captured != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = us.Other()
	p.Hash ^= zobristSideToMove
	p.history = append(p.history, rec)
}

// UndoMove reverses the most recent MakeMove.
func (p *Position) UndoMove() error {
	n := len(p.history)
	if n == 0 {
		return ErrEmptyHistory
	}
	rec := p.history[n-1]
	p.history = p.history[:n-1]

	m := rec.move
	from, to, pc := m.From(), m.To(), m.Piece()
	us := p.SideToMove.Other()
	p.SideToMove = us
	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsCastling() {
		rf, rt := castleRookSquares(to)
		rook := NewPiece(Rook, us)
		p.toggle(rook, rt)
		p.toggle(rook, rf)
	}
	if m.IsPromotion() {
		p.toggle(NewPiece(m.Promotion(), us), to)
	} else {
		p.toggle(pc, to)
	}
	p.toggle(pc, from)
	if rec.captured != NoPiece {
		p.toggle(rec.captured, rec.capturedSq)
	}

	p.CastlingRights = rec.castling
	p.EnPassant = rec.enPassant
	p.HalfMoveClock = rec.halfMove
	p.Hash = rec.hash
	return nil
}

// LastMove returns the most recently applied move, or NoMove.
func (p *Position) LastMove() Move {
	if len(p.history) == 0 {
		return NoMove
	}
	return p.history[len(p.history)-1].move
}

// Ply returns the number of moves that can be undone.
func (p *Position) Ply() int {
	return len(p.history)
}

// repetitions counts earlier occurrences of the current position within the
// reversible window.
func (p *Position) repetitions(stopAt int) int {
	n := len(p.history)
	limit := n - p.HalfMoveClock
	if limit < 0 {
		limit = 0
	}
	count := 0
	for i := n - 2; i >= limit; i -= 2 {
		if p.history[i].hash == p.Hash {
			count++
			if count >= stopAt {
				break
			}
		}
	}
	return count
}

// IsRepetition reports whether the current position already occurred since
// the last irreversible move.
func (p *Position) IsRepetition() bool {
	return p.repetitions(1) > 0
}

// IsInsufficientMaterial reports positions where neither side can mate:
// bare kings, a single minor piece, or same-colored bishops only.
func (p *Position) IsInsufficientMaterial() bool {
	heavy := p.Pieces[WhitePawn] | p.Pieces[BlackPawn] |
		p.Pieces[WhiteRook] | p.Pieces[BlackRook] |
		p.Pieces[WhiteQueen] | p.Pieces[BlackQueen]
	if heavy != 0 {
		return false
	}
	knights := p.Pieces[WhiteKnight] | p.Pieces[BlackKnight]
	bishops := p.Pieces[WhiteBishop] | p.Pieces[BlackBishop]
	minors := (knights | bishops).PopCount()
	if minors <= 1 {
		return true
	}
	if knights != 0 {
		return false
	}
	const lightSquares Bitboard = 0x55AA55AA55AA55AA
	return bishops&lightSquares == 0 || bishops&^lightSquares == 0
}

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces[NewPiece(pt, White)].PopCount() * PieceValue[pt]
		score -= p.Pieces[NewPiece(pt, Black)].PopCount() * PieceValue[pt]
	}
	return score
}

// Status classifies the position for the side to move.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	FiftyMoveRule
	InsufficientMaterial
	Repetition
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case FiftyMoveRule:
		return "fifty-move rule"
	case InsufficientMaterial:
		return "insufficient material"
	case Repetition:
		return "threefold repetition"
	default:
		return "ongoing"
	}
}

// Status reports whether the game has ended and how.
func (p *Position) Status() Status {
	if p.LegalMoves().Len() == 0 {
		if p.InCheck() {
			return Checkmate
		}
		return Stalemate
	}
	switch {
	case p.HalfMoveClock >= 100:
		return FiftyMoveRule
	case p.IsInsufficientMaterial():
		return InsufficientMaterial
	case p.repetitions(2) >= 2:
		return Repetition
	}
	return Ongoing
}

// Winner returns the side that delivered mate, or NoColor when the game is
// drawn or still in progress.
func (p *Position) Winner() Color {
	if p.Status() == Checkmate {
		return p.SideToMove.Other()
	}
	return NoColor
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			if pc := p.PieceAt(NewSquare(file, rank)); pc == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(pc.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Key: %016X\n", p.Hash)
	return sb.String()
}
