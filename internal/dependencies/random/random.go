package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// IDAlphabet leaves out characters that are easy to misread
	IDAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

	gameIDLength = 8
	rejoinSpace  = 10000
)

// Random is the source of every random choice the server makes
type Random interface {
	// Intn returns an int in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String returns length characters drawn from alphabet
	String(length int, alphabet string) string
}

// CryptoRandom draws from crypto/rand
type CryptoRandom struct{}

// New creates a CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}

// RejoinCode returns a four digit code, zero padded
func RejoinCode(r Random) string {
	return fmt.Sprintf("%04d", r.Intn(rejoinSpace))
}

// GameID returns a fresh identifier for a game
func GameID(r Random) string {
	return r.String(gameIDLength, IDAlphabet)
}
