package board

// Zobrist keys. One key per castling flag so that revoking a single right
// is one XOR.
var (
	zobristPiece      [12][64]uint64
	zobristCastling   [4]uint64
	zobristEnPassant  [8]uint64
	zobristSideToMove uint64
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234)

	for pc := WhitePawn; pc < NoPiece; pc++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[pc][sq] = rng.next()
		}
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	for file := range zobristEnPassant {
		zobristEnPassant[file] = rng.next()
	}
	zobristSideToMove = rng.next()
}

// castlingKey folds the key of every flag set in cr.
func castlingKey(cr CastlingRights) uint64 {
	var key uint64
	for i := 0; i < 4; i++ {
		if cr&(1<<i) != 0 {
			key ^= zobristCastling[i]
		}
	}
	return key
}

// ComputeHash computes the Zobrist hash for the position from scratch.
func (p *Position) ComputeHash() uint64 {
	var hash uint64
	for pc := WhitePawn; pc < NoPiece; pc++ {
		bb := p.Pieces[pc]
		for bb != 0 {
			hash ^= zobristPiece[pc][bb.PopLSB()]
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= castlingKey(p.CastlingRights)
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}
