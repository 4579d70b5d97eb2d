package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MalformedFENError reports a FEN string that could not be loaded.
type MalformedFENError struct {
	FEN    string
	Reason string
}

func (e *MalformedFENError) Error() string {
	return fmt.Sprintf("malformed FEN %q: %s", e.FEN, e.Reason)
}

// ParseFEN parses a FEN string and returns a Position.
func ParseFEN(fen string) (*Position, error) {
	pos := &Position{}
	if err := pos.LoadFEN(fen); err != nil {
		return nil, err
	}
	return pos, nil
}

// LoadFEN replaces the position with the one described by fen and clears
// the undo history. On error the receiver is left untouched.
func (p *Position) LoadFEN(fen string) error {
	var next Position
	next.Clear()
	if err := next.parseFEN(fen); err != nil {
		return err
	}
	next.history = p.history[:0]
	*p = next
	return nil
}

func (p *Position) parseFEN(fen string) error {
	bad := func(format string, args ...any) error {
		return &MalformedFENError{FEN: fen, Reason: fmt.Sprintf(format, args...)}
	}

	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return bad("need 6 fields, got %d", len(parts))
	}

	if err := p.parsePiecePlacement(parts[0]); err != nil {
		return bad("%v", err)
	}

	switch parts[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return bad("invalid side to move %q", parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			i := strings.IndexRune("KQkq", c)
			if i < 0 {
				return bad("invalid castling character %q", c)
			}
			p.CastlingRights |= 1 << i
		}
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Rank() != 2 && sq.Rank() != 5) {
			return bad("invalid en passant square %q", parts[3])
		}
		p.EnPassant = sq
	}

	hmc, err := strconv.Atoi(parts[4])
	if err != nil || hmc < 0 {
		return bad("invalid half-move clock %q", parts[4])
	}
	p.HalfMoveClock = hmc

	fmn, err := strconv.Atoi(parts[5])
	if err != nil || fmn < 1 {
		return bad("invalid full-move number %q", parts[5])
	}
	p.FullMoveNumber = fmn

	if p.Pieces[WhiteKing].PopCount() != 1 || p.Pieces[BlackKing].PopCount() != 1 {
		return bad("each side needs exactly one king")
	}
	if (p.Pieces[WhitePawn]|p.Pieces[BlackPawn])&(Rank1|Rank8) != 0 {
		return bad("pawn on first or last rank")
	}

	p.updateOccupied()
	p.Hash = p.ComputeHash()
	return nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func (p *Position) parsePiecePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("need 8 ranks, got %d", len(ranks))
	}

	var occupied Bitboard
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '8' {
				if j > 0 && rankStr[j-1] >= '1' && rankStr[j-1] <= '8' {
					return fmt.Errorf("rank %d has adjacent empty-square counts", rank+1)
				}
				file += int(c - '0')
				continue
			}
			pc := PieceFromChar(c)
			if pc == NoPiece {
				return fmt.Errorf("invalid piece character %q", c)
			}
			if file > 7 {
				return fmt.Errorf("rank %d overflows onto an occupied square", rank+1)
			}
			sq := NewSquare(file, rank)
			if occupied.IsSet(sq) {
				return fmt.Errorf("square %s is double-occupied", sq)
			}
			occupied = occupied.Set(sq)
			p.Pieces[pc] = p.Pieces[pc].Set(sq)
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d describes %d squares", rank+1, file)
		}
	}
	return nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s %d %d", side, p.CastlingRights, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}
