package assets

import (
	"strings"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Façade Zürich été":       "facade-zurich-ete",
		"  Hello,   World!! ":     "hello-world",
		"Ørsted":                  "rsted",
		"日本":                      "",
		"설계도면":                    "",
		"설계도면 v2":                 "v2",
		"plan_v2 (final)":         "plan-v2-final",
		strings.Repeat("ab-", 40): strings.TrimRight(strings.Repeat("ab-", 40)[:64], "-"),
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewKeyShape(t *testing.T) {
	now := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)
	key := NewKey("Press/Clippings", "Título Ñandú.JPEG", now)
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "press" || parts[1] != "clippings" || parts[2] != "2023" || parts[3] != "11" {
		t.Fatalf("unexpected key %q", key)
	}
	if !strings.HasSuffix(parts[4], "-titulo-nandu.jpeg") || len(parts[4]) != 36+len("-titulo-nandu.jpeg") {
		t.Fatalf("unexpected file segment %q", parts[4])
	}

	bare := NewKey("", "日本.png", now)
	if !strings.HasPrefix(bare, "uploads/2023/11/") || !strings.HasSuffix(bare, ".png") {
		t.Fatalf("unexpected key %q", bare)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	in := map[string]string{
		"Caption":       "Naïve café",
		"x_amz_weird!!": "plain",
		"":              "dropped",
		"Résumé":        "tab\tvalue",
	}
	encoded := EncodeMetadata(in)
	if _, ok := encoded[""]; ok {
		t.Fatal("empty key must be dropped")
	}
	if encoded["x-amz-weird"] != "plain" {
		t.Fatalf("unexpected encoding: %v", encoded)
	}
	if !strings.HasPrefix(encoded["caption"], "=?utf-8?q?") {
		t.Fatalf("expected Q-encoding, got %q", encoded["caption"])
	}
	decoded := DecodeMetadata(encoded)
	if decoded["caption"] != "Naïve café" || decoded["resume"] != "tab\tvalue" {
		t.Fatalf("round trip failed: %v", decoded)
	}
}

func TestMetadataRoundTripKeepsEncodedLookingValues(t *testing.T) {
	values := []string{
		"=?utf-8?q?caf=C3=A9?=",
		"a=?b",
		"tab\t=?x?q?y?=",
		"=?" + strings.Repeat("long value with spaces_and=signs ", 6),
		"설계 =? 도면",
	}
	for _, value := range values {
		encoded := EncodeMetadataValue(value)
		if encoded == value {
			t.Errorf("EncodeMetadataValue(%q) left the value unescaped", value)
		}
		if got := DecodeMetadataValue(encoded); got != value {
			t.Errorf("round trip of %q = %q (encoded %q)", value, got, encoded)
		}
	}
	if got := EncodeMetadataValue("plain value"); got != "plain value" {
		t.Errorf("plain ASCII must pass through, got %q", got)
	}
}
