package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const resetTokenBytes = 20

// GenerateResetToken returns a random hex-encoded password reset secret
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
