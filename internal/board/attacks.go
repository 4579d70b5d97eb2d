package board

// Direction is a signed square offset in the LERF layout. The first eight
// are rays, the last eight are knight jumps.
type Direction int

const (
	North     Direction = 8
	South     Direction = -8
	East      Direction = 1
	West      Direction = -1
	NorthEast Direction = 9
	NorthWest Direction = 7
	SouthEast Direction = -7
	SouthWest Direction = -9

	NorthNorthEast Direction = 17
	NorthNorthWest Direction = 15
	SouthSouthEast Direction = -15
	SouthSouthWest Direction = -17
	EastNorthEast  Direction = 10
	WestNorthWest  Direction = 6
	EastSouthEast  Direction = -6
	WestSouthWest  Direction = -10
)

var (
	rayDirections    = []Direction{North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest}
	rookDirections   = []Direction{North, South, East, West}
	bishopDirections = []Direction{NorthEast, NorthWest, SouthEast, SouthWest}
	knightDirections = []Direction{
		NorthNorthEast, NorthNorthWest, SouthSouthEast, SouthSouthWest,
		EastNorthEast, WestNorthWest, EastSouthEast, WestSouthWest,
	}
	pawnCaptureDirections = [2][]Direction{{NorthWest, NorthEast}, {SouthWest, SouthEast}}
	pawnPushDirection     = [2]Direction{North, South}
)

// directionInfo holds the squares a piece may step from without leaving the
// board and the edge squares that end a slide in that direction.
type directionInfo struct {
	source Bitboard
	edge   Bitboard
}

// directionMasks is indexed by offset+17 so lookups stay a single array read.
var directionMasks [35]directionInfo

func setDirection(dir Direction, source, edge Bitboard) {
	directionMasks[dir+17] = directionInfo{source: source, edge: edge}
}

func initDirections() {
	setDirection(North, NotRank8, Empty)
	setDirection(South, NotRank1, Empty)
	setDirection(East, NotFileH, FileH)
	setDirection(West, NotFileA, FileA)
	setDirection(NorthEast, NotFileH&NotRank8, FileH)
	setDirection(NorthWest, NotFileA&NotRank8, FileA)
	setDirection(SouthEast, NotFileH&NotRank1, FileH)
	setDirection(SouthWest, NotFileA&NotRank1, FileA)

	setDirection(NorthNorthEast, NotFileH&NotRank78, Empty)
	setDirection(NorthNorthWest, NotFileA&NotRank78, Empty)
	setDirection(SouthSouthEast, NotFileH&NotRank12, Empty)
	setDirection(SouthSouthWest, NotFileA&NotRank12, Empty)
	setDirection(EastNorthEast, NotFileGH&NotRank8, Empty)
	setDirection(WestNorthWest, NotFileAB&NotRank8, Empty)
	setDirection(EastSouthEast, NotFileGH&NotRank1, Empty)
	setDirection(WestSouthWest, NotFileAB&NotRank1, Empty)
}

// Between and Line bitboards for pins/checks
var (
	betweenBB [64][64]Bitboard // Squares strictly between two squares
	lineBB    [64][64]Bitboard // Full line through two squares (including endpoints)
)

func init() {
	initDirections()
	initBetweenBB()
	initLineBB()
}

// shift moves every bit of b by dir; bits pushed past either end are lost.
func shift(b Bitboard, dir Direction) Bitboard {
	if dir > 0 {
		return b << uint(dir)
	}
	return b >> uint(-dir)
}

// DirectionalAttack propagates every bit of source one step in dir, or to
// the end of the ray when sliding. Squares in hard are never entered.
// Squares in soft are entered once and end the ray there.
// The result covers all source squares at once.
func DirectionalAttack(dir Direction, source, hard, soft Bitboard, sliding bool) Bitboard {
	info := directionMasks[dir+17]
	if sliding {
		soft |= info.edge
	}

	var result Bitboard
	frontier := source
	for {
		frontier = shift(frontier&info.source, dir)
		frontier &^= hard
		stopped := frontier & soft
		hard |= stopped
		next := frontier &^ result
		result |= frontier
		frontier &^= stopped
		if !sliding || next == 0 {
			break
		}
		frontier &= next
	}
	return result
}

// directionsFor returns the capture directions for pt and whether it slides.
func directionsFor(pt PieceType, c Color) ([]Direction, bool) {
	switch pt {
	case Pawn:
		return pawnCaptureDirections[c], false
	case Knight:
		return knightDirections, false
	case Bishop:
		return bishopDirections, true
	case Rook:
		return rookDirections, true
	case Queen:
		return rayDirections, true
	default:
		return rayDirections, false
	}
}

// attackFrom unions DirectionalAttack over all directions of pt.
func attackFrom(pt PieceType, c Color, source, hard, soft Bitboard) Bitboard {
	dirs, sliding := directionsFor(pt, c)
	var out Bitboard
	for _, dir := range dirs {
		out |= DirectionalAttack(dir, source, hard, soft, sliding)
	}
	return out
}

// pawnPushes returns single and double step targets for the pawns in source.
// A double step is only granted from the home rank when the single step
// square is empty.
func pawnPushes(c Color, source, occupied Bitboard) Bitboard {
	dir := pawnPushDirection[c]
	single := DirectionalAttack(dir, source, occupied, Empty, false)
	home := Rank3
	if c == Black {
		home = Rank6
	}
	return single | DirectionalAttack(dir, single&home, occupied, Empty, false)
}

// TypePushes returns the quiet destinations of every piece of type pc:
// squares reachable without capturing.
func TypePushes(p *Position, pc Piece) Bitboard {
	return pushesFrom(p, pc, p.Pieces[pc])
}

// TypeCaptures returns the destinations of every piece of type pc that hold
// an enemy piece. Pawn captures include the en passant target.
func TypeCaptures(p *Position, pc Piece) Bitboard {
	return capturesFrom(p, pc, p.Pieces[pc])
}

// PieceMoves returns every destination of the single piece pc standing on sq.
func PieceMoves(p *Position, pc Piece, sq Square) Bitboard {
	src := SquareBB(sq)
	return pushesFrom(p, pc, src) | capturesFrom(p, pc, src)
}

func pushesFrom(p *Position, pc Piece, source Bitboard) Bitboard {
	pt, c := pc.Type(), pc.Color()
	if pt == Pawn {
		return pawnPushes(c, source, p.AllOccupied)
	}
	return attackFrom(pt, c, source, p.AllOccupied, Empty)
}

func capturesFrom(p *Position, pc Piece, source Bitboard) Bitboard {
	pt, c := pc.Type(), pc.Color()
	enemies := p.Occupied[c.Other()]
	targets := enemies
	if pt == Pawn && p.EnPassant != NoSquare {
		targets |= SquareBB(p.EnPassant)
	}
	return attackFrom(pt, c, source, p.Occupied[c], enemies) & targets
}

// CaptureReach returns every square attacked by the pieces of type pc,
// including squares held by pc's own side.
func CaptureReach(p *Position, pc Piece) Bitboard {
	return attackFrom(pc.Type(), pc.Color(), p.Pieces[pc], Empty, p.AllOccupied)
}

// KingDangerSquares returns the squares attacked by c's opponent with c's
// king lifted off the board, so a king cannot hide behind itself on a line.
func KingDangerSquares(p *Position, c Color) Bitboard {
	king := NewPiece(King, c)
	kingBB := p.Pieces[king]
	p.Pieces[king] = Empty
	p.Occupied[c] &^= kingBB
	p.AllOccupied &^= kingBB

	var danger Bitboard
	them := c.Other()
	for pt := Pawn; pt <= King; pt++ {
		danger |= CaptureReach(p, NewPiece(pt, them))
	}

	p.Pieces[king] = kingBB
	p.Occupied[c] |= kingBB
	p.AllOccupied |= kingBB
	return danger
}

// attackersOf returns the pieces of color by attacking sq given occupied.
func (p *Position) attackersOf(sq Square, by Color, occupied Bitboard) Bitboard {
	src := SquareBB(sq)
	var out Bitboard
	for pt := Pawn; pt <= King; pt++ {
		// A pawn of `by` attacks sq exactly when a pawn of the other color
		// on sq would attack it.
		lookup := by
		if pt == Pawn {
			lookup = by.Other()
		}
		out |= attackFrom(pt, lookup, src, Empty, occupied) & p.Pieces[NewPiece(pt, by)]
	}
	return out
}

func initBetweenBB() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			df, dr, ok := alignment(sq1, sq2)
			if !ok {
				continue
			}
			var between Bitboard
			for f, r := sq1.File()+df, sq1.Rank()+dr; f != sq2.File() || r != sq2.Rank(); f, r = f+df, r+dr {
				between |= SquareBB(NewSquare(f, r))
			}
			betweenBB[sq1][sq2] = between
		}
	}
}

func initLineBB() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			df, dr, ok := alignment(sq1, sq2)
			if !ok {
				continue
			}
			line := SquareBB(sq1)
			for _, step := range [2]int{1, -1} {
				f, r := sq1.File()+step*df, sq1.Rank()+step*dr
				for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
					line |= SquareBB(NewSquare(f, r))
					f += step * df
					r += step * dr
				}
			}
			lineBB[sq1][sq2] = line
		}
	}
}

// alignment returns the unit file/rank step from sq1 towards sq2 when the
// two distinct squares share a rank, file or diagonal.
func alignment(sq1, sq2 Square) (df, dr int, ok bool) {
	if sq1 == sq2 {
		return 0, 0, false
	}
	fd, rd := sq2.File()-sq1.File(), sq2.Rank()-sq1.Rank()
	if fd != 0 && rd != 0 && abs(fd) != abs(rd) {
		return 0, 0, false
	}
	return sign(fd), sign(rd), true
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Between returns the bitboard of squares strictly between two squares.
// Returns empty if squares are not aligned (not on same rank, file, or diagonal).
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// Line returns the bitboard of the full line through two squares.
// Returns empty if squares are not aligned.
func Line(sq1, sq2 Square) Bitboard {
	return lineBB[sq1][sq2]
}
