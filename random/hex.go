package random

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// Bytes generates n random bytes.
func Bytes(n int) []byte {
	bytes := make([]byte, n)

	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}

	return bytes
}

func String(n int) string {
	return hex.EncodeToString(Bytes(n))
}

const digits = "0123456789"

// Digits generates a numeric code of n decimal digits, leading zeros allowed.
func Digits(n int) string {
	var sb strings.Builder

	sb.Grow(n)

	for range n {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			panic(err)
		}

		sb.WriteByte(digits[index.Int64()])
	}

	return sb.String()
}
