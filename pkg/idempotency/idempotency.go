package idempotency

import (
	"net/http"
	"strings"
)

const (
	Header = "Idempotency-Key"
	// MaxLen bounds the stored key; longer keys are rejected by callers.
	MaxLen = 128
)

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

func Valid(key string) bool {
	return len(key) <= MaxLen
}
