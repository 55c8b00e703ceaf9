package securecore

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Backup codes use an alphabet with the ambiguous characters 0/O/1/I/L
// removed, formatted as two groups of five: XXXXX-XXXXX.
const (
	backupCodeAlphabet   = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	backupCodeGroupSize  = 5
	backupCodeGroupCount = 2
)

func generateBackupCode() (string, error) {
	raw := make([]byte, backupCodeGroupSize*backupCodeGroupCount)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, c := range raw {
		if i > 0 && i%backupCodeGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(backupCodeAlphabet[int(c)%len(backupCodeAlphabet)])
	}
	return b.String(), nil
}

func generateBackupCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// canonicalBackupCode normalizes user input before hashing or verifying:
// uppercase, with separators and whitespace stripped.
func canonicalBackupCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
