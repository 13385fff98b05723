package helpers

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

// rand.Rand is not safe for concurrent use; registrations run in parallel.
var (
	srcMu sync.Mutex
	src   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomChars(n int) string {
	b := make([]byte, n)
	srcMu.Lock()
	for i := range b {
		b[i] = letterBytes[src.Intn(len(letterBytes))]
	}
	srcMu.Unlock()
	return string(b)
}

// GenerateAccountCode derives a short unique-ish account code from the chosen
// name; uniqueness is enforced by the column index, collisions surface as
// registration errors.
func GenerateAccountCode(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) > 12 {
		name = name[:12]
	}
	return name + "_" + randomChars(4)
}

// MaskRef keeps only the last four characters of a payment reference.
func MaskRef(ref string) string {
	if len(ref) <= 4 {
		return "****"
	}
	return "****" + ref[len(ref)-4:]
}
