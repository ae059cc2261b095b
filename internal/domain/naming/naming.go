// Package naming turns free-form titles and file names into filesystem-safe identifiers.
package naming

import (
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrNamingFailure is returned when a string has no alphanumeric content to build a name from.
var ErrNamingFailure = errors.New("naming failure: no alphanumeric characters")

// fallbackSpace scopes the UUIDv5 namespace used by Fallback.
var fallbackSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("harvester/video-folder"))

// SnakeCase lower-cases s and joins its alphanumeric runs with single underscores.
//
// "My Cool.Video (v2)!" -> "my_cool_video_v2". Strings without letters or numbers map to "".
func SnakeCase(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			pending = false
			continue
		}
		pending = true
	}
	return b.String()
}

// Identifier is SnakeCase that reports an empty result as ErrNamingFailure.
func Identifier(s string) (string, error) {
	id := SnakeCase(s)
	if id == "" {
		return "", ErrNamingFailure
	}
	return id, nil
}

// Fallback derives a stable replacement identifier from seed (usually an absolute path).
// The same seed always yields the same name, so re-runs land in the same folder.
func Fallback(seed string) string {
	id := uuid.NewSHA1(fallbackSpace, []byte(seed))
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "video_" + hex[:12]
}
