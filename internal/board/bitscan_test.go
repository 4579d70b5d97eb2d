package board

import (
	"math/bits"
	"math/rand"
	"testing"
)

func TestBitScanMatchesMathBits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inputs := []uint64{1, 2, 3, 1 << 63, 0x8000000000000001, 0xFFFFFFFFFFFFFFFF, 0x0000000100000000}
	for i := 0; i < 64; i++ {
		inputs = append(inputs, 1<<i)
	}
	for i := 0; i < 1000; i++ {
		inputs = append(inputs, rng.Uint64()>>uint(rng.Intn(64)))
	}

	for _, b := range inputs {
		if b == 0 {
			continue
		}
		if got, want := LowestBit(b), bits.TrailingZeros64(b); got != want {
			t.Errorf("LowestBit(%#x) = %d, want %d", b, got, want)
		}
		if got, want := HighestBit(b), 63-bits.LeadingZeros64(b); got != want {
			t.Errorf("HighestBit(%#x) = %d, want %d", b, got, want)
		}
	}
}

func TestBitScanZero(t *testing.T) {
	if LowestBit(0) != -1 || HighestBit(0) != -1 {
		t.Errorf("zero input should yield -1")
	}
	if Bitboard(0).LSB() != NoSquare || Bitboard(0).MSB() != NoSquare {
		t.Errorf("empty bitboard should scan to NoSquare")
	}
}

func TestPopLSBOrder(t *testing.T) {
	bb := SquareBB(H8) | SquareBB(A1) | SquareBB(E4)
	var got []Square
	for bb != 0 {
		got = append(got, bb.PopLSB())
	}
	want := []Square{A1, E4, H8}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pop %d = %v, want %v", i, got[i], want[i])
		}
	}
}
