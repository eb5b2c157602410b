package cryptoutil

import "encoding/binary"

// ghash implements the GHASH universal hash underlying AES-GCM (NIST SP
// 800-38D §6.4), folded in incrementally over 16-byte blocks so a GCM tag
// can be finalized after any number of Write calls rather than from one
// complete in-memory buffer. crypto/cipher.NewGCM does not expose this
// machinery, so streamaead.go's raw-mode streaming AEAD reimplements it
// directly on top of the session's existing AES-128 block cipher.
type ghash struct {
	h   [16]byte // hash subkey, E_K(0^128)
	y   [16]byte // running digest
	buf [16]byte
	n   int // bytes buffered in buf, always < 16
}

func newGHASH(h [16]byte) *ghash {
	return &ghash{h: h}
}

// Write absorbs data in any grouping: complete 16-byte blocks are folded
// in immediately, and a trailing partial block is held until the next
// Write or Flush.
func (g *ghash) Write(data []byte) {
	if g.n > 0 {
		n := copy(g.buf[g.n:], data)
		g.n += n
		data = data[n:]
		if g.n < 16 {
			return
		}
		g.absorb(g.buf)
		g.n = 0
	}
	for len(data) >= 16 {
		var block [16]byte
		copy(block[:], data[:16])
		g.absorb(block)
		data = data[16:]
	}
	if len(data) > 0 {
		g.n = copy(g.buf[:], data)
	}
}

// Flush zero-pads and folds in any buffered partial block. GHASH pads
// AAD and ciphertext to 16-byte boundaries independently of one another,
// so a caller processing both must Flush at the AAD/ciphertext boundary.
func (g *ghash) Flush() {
	if g.n == 0 {
		return
	}
	for i := g.n; i < 16; i++ {
		g.buf[i] = 0
	}
	g.absorb(g.buf)
	g.n = 0
}

func (g *ghash) absorb(block [16]byte) {
	for i := range g.y {
		g.y[i] ^= block[i]
	}
	g.y = gfMul(g.y, g.h)
}

// Sum flushes any pending partial block, folds in the standard trailer
// (64-bit AAD bit-length, 64-bit ciphertext bit-length, both big-endian),
// and returns the resulting digest. The ghash must not be reused after
// Sum is called.
func (g *ghash) Sum(aadBits, cipherBits uint64) [16]byte {
	g.Flush()
	var lenBlock [16]byte
	binary.BigEndian.PutUint64(lenBlock[0:8], aadBits)
	binary.BigEndian.PutUint64(lenBlock[8:16], cipherBits)
	g.absorb(lenBlock)
	return g.y
}

// gfMul multiplies x and y in the GF(2^128) field GHASH operates over,
// under its bit ordering (bit 0 of byte 0 is the polynomial's highest
// order term). Textbook shift-and-reduce, per SP 800-38D algorithm 1,
// reducing by the field polynomial x^128+x^7+x^2+x+1 (the 0xe1 constant
// below is that polynomial's low byte, folded back in on each right
// shift that carries a set bit out of the low-order term).
func gfMul(x, y [16]byte) [16]byte {
	var z, v [16]byte
	v = y
	for i := 0; i < 128; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		if x[byteIdx]&(1<<bitIdx) != 0 {
			for b := range z {
				z[b] ^= v[b]
			}
		}
		lsb := v[15] & 1
		for b := 15; b > 0; b-- {
			v[b] = (v[b] >> 1) | (v[b-1] << 7)
		}
		v[0] >>= 1
		if lsb != 0 {
			v[0] ^= 0xe1
		}
	}
	return z
}
