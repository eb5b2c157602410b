package cryptoutil_test

import (
	"testing"

	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

func TestSecureRandom(t *testing.T) {
	buf := make([]byte, 32)
	if err := cryptoutil.SecureRandom(buf); err != nil {
		t.Fatalf("SecureRandom failed: %v", err)
	}

	allZeros := true
	for _, b := range buf {
		if b != 0 {
			allZeros = false
			break
		}
	}
	if allZeros {
		t.Error("SecureRandom returned all zeros")
	}
}

func TestSecureRandomBytes(t *testing.T) {
	sizes := []int{16, 32, 64, 128}
	for _, size := range sizes {
		buf, err := cryptoutil.SecureRandomBytes(size)
		if err != nil {
			t.Fatalf("SecureRandomBytes(%d) failed: %v", size, err)
		}
		if len(buf) != size {
			t.Errorf("SecureRandomBytes(%d) returned %d bytes", size, len(buf))
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := []byte("hello world")
	b := []byte("hello world")
	c := []byte("hello worle")
	d := []byte("hello")

	if !cryptoutil.ConstantTimeCompare(a, b) {
		t.Error("Equal slices should compare equal")
	}
	if cryptoutil.ConstantTimeCompare(a, c) {
		t.Error("Different slices should not compare equal")
	}
	if cryptoutil.ConstantTimeCompare(a, d) {
		t.Error("Different length slices should not compare equal")
	}
}

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	cryptoutil.Zeroize(buf)

	for i, b := range buf {
		if b != 0 {
			t.Errorf("Zeroize failed at index %d: got %d, want 0", i, b)
		}
	}
}

func TestZeroizeMultiple(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5, 6}
	cryptoutil.ZeroizeMultiple(a, b)

	for _, buf := range [][]byte{a, b} {
		for i, v := range buf {
			if v != 0 {
				t.Errorf("ZeroizeMultiple failed at index %d: got %d, want 0", i, v)
			}
		}
	}
}
