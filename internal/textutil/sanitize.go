package textutil

import "strings"

// unsafeReplacer maps filesystem-hostile characters to safe substitutes.
// Separators become dashes so structure stays readable; the rest vanish.
var unsafeReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName rewrites a candidate filename so it is safe on common
// filesystems. Path separators and colons become dashes; other unsafe
// characters are dropped. Leading/trailing whitespace and dots are trimmed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = unsafeReplacer.Replace(name)
	name = strings.Trim(name, " .")
	return name
}

// SanitizeToken lowers a value into a filesystem-safe identifier token:
// letters lowercased, digits and hyphen/underscore preserved, everything
// else collapsed to a single underscore. Empty input yields "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(value))
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	token := strings.Trim(b.String(), "_")
	if token == "" {
		return "unknown"
	}
	return token
}
