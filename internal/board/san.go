package board

import (
	"fmt"
	"strings"
)

const sanPieceLetters = "PNBRQK"

// ToSAN converts a legal move in pos to Standard Algebraic Notation.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	if m.IsCastling() {
		return m.withCheckSuffix(pos, castleSAN(m))
	}

	from, to := m.From(), m.To()
	pt := m.Piece().Type()

	var sb strings.Builder
	if pt != Pawn {
		sb.WriteByte(sanPieceLetters[pt])
		sb.WriteString(disambiguation(pos, m))
	}
	if m.IsCapture() {
		if pt == Pawn {
			sb.WriteByte('a' + byte(from.File()))
		}
		sb.WriteByte('x')
	}
	sb.WriteString(to.String())
	if m.IsPromotion() {
		sb.WriteByte('=')
		sb.WriteByte(sanPieceLetters[m.Promotion()])
	}
	return m.withCheckSuffix(pos, sb.String())
}

func castleSAN(m Move) string {
	if m.Flag() == FlagKingCastle {
		return "O-O"
	}
	return "O-O-O"
}

// withCheckSuffix plays m on pos to decide between "+", "#" and nothing.
func (m Move) withCheckSuffix(pos *Position, san string) string {
	pos.MakeMove(m)
	defer pos.UndoMove()

	if !pos.InCheck() {
		return san
	}
	if pos.LegalMoves().Len() == 0 {
		return san + "#"
	}
	return san + "+"
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other legal moves of the same piece kind to the same square.
func disambiguation(pos *Position, m Move) string {
	from := m.From()
	var sameFile, sameRank, ambiguous bool

	for _, other := range pos.LegalMoves().Slice() {
		if other.To() != m.To() || other.Piece() != m.Piece() || other.From() == from {
			continue
		}
		ambiguous = true
		sameFile = sameFile || other.From().File() == from.File()
		sameRank = sameRank || other.From().Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	default:
		return from.String()
	}
}

// ParseSAN parses a SAN string and returns the matching legal move.
func ParseSAN(s string, pos *Position) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")

	legal := pos.LegalMoves().Slice()
	switch s {
	case "O-O", "0-0", "O-O-O", "0-0-0":
		want := FlagKingCastle
		if len(s) == 5 {
			want = FlagQueenCastle
		}
		for _, m := range legal {
			if m.Flag() == want {
				return m, nil
			}
		}
		return NoMove, fmt.Errorf("castling %q is not legal here", orig)
	}

	promo := NoPieceType
	if idx := strings.IndexByte(s, '='); idx >= 0 && idx+1 < len(s) {
		promo = PieceType(strings.IndexByte(sanPieceLetters, s[idx+1]))
		s = s[:idx]
	}

	isCapture := strings.Contains(s, "x")
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 {
		if i := strings.IndexByte(sanPieceLetters[1:], s[0]); i >= 0 {
			pt = PieceType(i + 1)
			s = s[1:]
		}
	}

	if len(s) < 2 {
		return NoMove, fmt.Errorf("invalid SAN %q", orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid SAN %q: %w", orig, err)
	}

	fileHint, rankHint := -1, -1
	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			fileHint = int(c - 'a')
		case c >= '1' && c <= '8':
			rankHint = int(c - '1')
		}
	}

	for _, m := range legal {
		from := m.From()
		switch {
		case m.To() != dest, m.Piece().Type() != pt:
		case fileHint >= 0 && from.File() != fileHint:
		case rankHint >= 0 && from.Rank() != rankHint:
		case isCapture && !m.IsCapture():
		case m.Promotion() != promo:
		default:
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("no legal move matches %q", orig)
}

// MovesToSAN converts a line of moves starting at pos to SAN. pos is
// restored before returning.
func MovesToSAN(pos *Position, moves []Move) []string {
	result := make([]string, 0, len(moves))
	for _, m := range moves {
		result = append(result, m.ToSAN(pos))
		pos.MakeMove(m)
	}
	for range result {
		_ = pos.UndoMove()
	}
	return result
}
