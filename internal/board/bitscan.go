package board

// LowestBit returns the index of the least significant set bit of b.
// It narrows the search window by halves (32, 16, 8, 4, 2, 1 bits), so the
// scan costs six mask-and-shift steps regardless of input.
// Callers must guard with b != 0; a zero input yields -1.
func LowestBit(b uint64) int {
	if b == 0 {
		return -1
	}
	idx := 0
	if b&0xFFFFFFFF == 0 {
		idx += 32
		b >>= 32
	}
	if b&0xFFFF == 0 {
		idx += 16
		b >>= 16
	}
	if b&0xFF == 0 {
		idx += 8
		b >>= 8
	}
	if b&0xF == 0 {
		idx += 4
		b >>= 4
	}
	if b&0x3 == 0 {
		idx += 2
		b >>= 2
	}
	if b&0x1 == 0 {
		idx++
	}
	return idx
}

// HighestBit returns the index of the most significant set bit of b.
// Callers must guard with b != 0; a zero input yields -1.
func HighestBit(b uint64) int {
	if b == 0 {
		return -1
	}
	idx := 0
	if b&0xFFFFFFFF00000000 != 0 {
		idx += 32
		b >>= 32
	}
	if b&0xFFFF0000 != 0 {
		idx += 16
		b >>= 16
	}
	if b&0xFF00 != 0 {
		idx += 8
		b >>= 8
	}
	if b&0xF0 != 0 {
		idx += 4
		b >>= 4
	}
	if b&0xC != 0 {
		idx += 2
		b >>= 2
	}
	if b&0x2 != 0 {
		idx++
	}
	return idx
}
