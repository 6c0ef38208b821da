// Package code generates the short receipt-style entity codes used across
// the system (e.g. "K9X-2M1").
package code

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

// Alphabet excludes easily-confused characters (0/O, 1/I/L)
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var pattern = regexp.MustCompile(`^[` + Alphabet + `]{3}-[` + Alphabet + `]{3}$`)

// New returns a fresh 7-character code in AAA-AAA form. Collisions have a
// non-zero probability (32^6 space), so callers inserting into a table must
// retry on a unique-key violation.
func New() string {
	buf := make([]byte, 7)
	for i := 0; i < 7; i++ {
		if i == 3 {
			buf[i] = '-'
			continue
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf)
}

// Valid reports whether s is a well-formed entity code
func Valid(s string) bool {
	return pattern.MatchString(s)
}
