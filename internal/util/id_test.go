package util

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	plain := NewID("")
	if len(plain) != 32 || strings.Contains(plain, "-") {
		t.Fatalf("NewID(\"\") = %q, want 32 hex chars", plain)
	}
	prefixed := NewID("prj")
	if !strings.HasPrefix(prefixed, "prj_") || len(prefixed) != 36 {
		t.Fatalf("NewID(\"prj\") = %q", prefixed)
	}
	if NewID("prj") == prefixed {
		t.Fatal("expected distinct ids")
	}
}
