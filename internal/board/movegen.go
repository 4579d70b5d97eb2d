package board

// promotionOrder is the order promotions are emitted in.
var promotionOrder = [4]PieceType{Queen, Rook, Bishop, Knight}

// LegalMoves returns all strictly legal moves for the side to move.
func (p *Position) LegalMoves() *MoveList {
	ml := NewMoveList()
	p.GenerateLegalMoves(ml)
	return ml
}

// GenerateLegalMoves fills ml with the legal moves for the side to move.
// Moves come out grouped by piece type (pawns, knights, bishops, rooks,
// queens, king, castling), origins ascending, destinations ascending.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	ml.Clear()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare(us)
	if ksq == NoSquare {
		return
	}

	checkers := p.attackersOf(ksq, them, p.AllOccupied)
	danger := KingDangerSquares(p, us)

	if !checkers.MoreThanOne() {
		// Outside check every square is allowed; in single check a move
		// must capture the checker or land between it and the king.
		target := Universe
		if checkers != 0 {
			target = checkers | Between(ksq, checkers.LSB())
		}
		pinned, pinRays := p.pins(us, ksq)

		for pt := Pawn; pt < King; pt++ {
			pc := NewPiece(pt, us)
			pieces := p.Pieces[pc]
			for pieces != 0 {
				from := pieces.PopLSB()
				dests := PieceMoves(p, pc, from)

				var ep Bitboard
				if pt == Pawn && p.EnPassant != NoSquare {
					ep = dests & SquareBB(p.EnPassant)
					dests &^= ep
					if ep != 0 && !p.enPassantIsSafe(from, ksq) {
						ep = 0
					}
				}

				dests &= target
				if pinned.IsSet(from) {
					dests &= pinRays[from]
				}
				p.emit(ml, pc, from, dests|ep)
			}
		}
	}

	king := NewPiece(King, us)
	p.emit(ml, king, ksq, PieceMoves(p, king, ksq)&^danger)

	if checkers == 0 {
		p.generateCastling(ml, us, ksq, danger)
	}
}

// emit adds one move per destination, classifying each by the board.
func (p *Position) emit(ml *MoveList, pc Piece, from Square, dests Bitboard) {
	us := pc.Color()
	isPawn := pc.Type() == Pawn
	for dests != 0 {
		to := dests.PopLSB()
		capture := p.Occupied[us.Other()].IsSet(to)

		switch {
		case isPawn && to == p.EnPassant:
			ml.Add(NewMove(pc, from, to, FlagEnPassant))
		case isPawn && (to.Rank() == 0 || to.Rank() == 7):
			for _, promo := range promotionOrder {
				ml.Add(NewMove(pc, from, to, PromotionFlag(promo, capture)))
			}
		case capture:
			ml.Add(NewMove(pc, from, to, FlagCapture))
		case isPawn && abs(int(to)-int(from)) == 16:
			ml.Add(NewMove(pc, from, to, FlagDoublePush))
		default:
			ml.Add(NewMove(pc, from, to, FlagQuiet))
		}
	}
}

// pins finds the pieces of color us pinned to the king on ksq. For each
// pinned piece, rays holds the squares it may still move to: the line from
// the king up to and including the pinning slider.
func (p *Position) pins(us Color, ksq Square) (pinned Bitboard, rays [64]Bitboard) {
	them := us.Other()
	occ := p.AllOccupied
	king := SquareBB(ksq)
	queens := p.Pieces[NewPiece(Queen, them)]
	straight := p.Pieces[NewPiece(Rook, them)] | queens
	diagonal := p.Pieces[NewPiece(Bishop, them)] | queens

	for _, dir := range rayDirections {
		blocker := DirectionalAttack(dir, king, Empty, occ, true) & p.Occupied[us]
		if blocker == 0 {
			continue
		}
		beyond := DirectionalAttack(dir, king, Empty, occ&^blocker, true)

		sliders := diagonal
		if dir == North || dir == South || dir == East || dir == West {
			sliders = straight
		}
		if beyond&occ&^blocker&sliders != 0 {
			pinned |= blocker
			rays[blocker.LSB()] = beyond
		}
	}
	return pinned, rays
}

// enPassantIsSafe replays the occupancy of an en passant capture from the
// given square and reports whether the king survives it. This covers the
// rank pin where both pawns leave the same line at once.
func (p *Position) enPassantIsSafe(from, ksq Square) bool {
	us := p.SideToMove
	capSq := p.EnPassant - 8
	if us == Black {
		capSq = p.EnPassant + 8
	}
	captured := SquareBB(capSq)
	occ := p.AllOccupied&^SquareBB(from)&^captured | SquareBB(p.EnPassant)
	return p.attackersOf(ksq, us.Other(), occ)&^captured == 0
}

func (p *Position) generateCastling(ml *MoveList, us Color, ksq Square, danger Bitboard) {
	king := NewPiece(King, us)
	rook := p.Pieces[NewPiece(Rook, us)]
	home := E1
	if us == Black {
		home = E8
	}
	if ksq != home {
		return
	}

	if p.CastlingRights.CanCastle(us, true) && rook.IsSet(home+3) {
		path := SquareBB(home+1) | SquareBB(home+2)
		if p.AllOccupied&path == 0 && danger&path == 0 {
			ml.Add(NewMove(king, home, home+2, FlagKingCastle))
		}
	}
	if p.CastlingRights.CanCastle(us, false) && rook.IsSet(home-4) {
		empty := SquareBB(home-1) | SquareBB(home-2) | SquareBB(home-3)
		transit := SquareBB(home-1) | SquareBB(home-2)
		if p.AllOccupied&empty == 0 && danger&transit == 0 {
			ml.Add(NewMove(king, home, home-2, FlagQueenCastle))
		}
	}
}

// Checkers returns the enemy pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard {
	ksq := p.KingSquare(p.SideToMove)
	if ksq == NoSquare {
		return Empty
	}
	return p.attackersOf(ksq, p.SideToMove.Other(), p.AllOccupied)
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers() != 0
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && p.LegalMoves().Len() == 0
}

// IsStalemate returns true if the side to move has no legal move and is not
// in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && p.LegalMoves().Len() == 0
}
