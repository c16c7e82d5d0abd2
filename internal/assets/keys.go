package assets

import (
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPrefix = "uploads"
	maxSlugLen    = 64
	maxExtLen     = 10
)

// NewKey builds <prefix>/<yyyy>/<mm>/<uuid>-<slug><ext> for an uploaded file.
func NewKey(prefix, fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := Ext(base)
	stem := strings.TrimSuffix(base, path.Ext(base))

	name := uuid.NewString()
	if slug := Slug(stem); slug != "" {
		name += "-" + slug
	}
	now = now.UTC()
	return path.Join(CleanPrefix(prefix), now.Format("2006"), now.Format("01"), name+ext)
}

// Slug folds s to lower-case ASCII, collapsing every run of other characters
// into a single '-'. Scripts without a Latin decomposition, Hangul and CJK
// among them, fold to "", leaving a key of only <uuid><ext>; the original
// name is kept in the object's original-name metadata.
func Slug(s string) string {
	slug := dashed(s)
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

func dashed(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(foldASCII(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Ext returns the lower-cased extension of name, or "" when it is not plain
// ASCII alphanumerics.
func Ext(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}

// CleanPrefix keeps only lower-case ASCII path segments; anything else falls
// back to DefaultPrefix.
func CleanPrefix(prefix string) string {
	var segments []string
	for _, segment := range strings.Split(prefix, "/") {
		if slug := Slug(segment); slug != "" {
			segments = append(segments, slug)
		}
	}
	if len(segments) == 0 {
		return DefaultPrefix
	}
	return strings.Join(segments, "/")
}

func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
