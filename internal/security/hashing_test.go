package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("correct horse battery"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, []byte("correct horse battery")); err != nil {
		t.Errorf("Compare with right password: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong password")); err == nil {
		t.Error("Compare accepted a wrong password")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-3, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, c := range cases {
		if got := NewHasher(c.in).Cost; got != c.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", c.in, got, c.want)
		}
	}
}
