package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// codeAlphabet leaves out 0/O and 1/I so codes can be read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRoomCode - generates a random upper-case room code of the given length.
func GenerateRoomCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to read random: %w", err)
		}
		code[i] = codeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// GenerateNewSessionID - generates a new unique sessionID.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
