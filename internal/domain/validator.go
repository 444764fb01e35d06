package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxFilenameLength is the longest accepted filename, in characters
	MaxFilenameLength = 255
	// MaxDirectoryDepth is the number of directory levels allowed above the file
	MaxDirectoryDepth = 2
)

// FilenameValidator checks candidate filenames before anything is written
type FilenameValidator struct {
	maxLength     int
	maxDepth      int
	reservedChars string
}

// NewFilenameValidator creates a validator with the default limits
func NewFilenameValidator() *FilenameValidator {
	return &FilenameValidator{
		maxLength:     MaxFilenameLength,
		maxDepth:      MaxDirectoryDepth,
		reservedChars: "<>:\"|?*\x00",
	}
}

var defaultFilenameValidator = NewFilenameValidator()

// ValidateFilename validates name with the default limits
func ValidateFilename(name string) ValidationOutcome {
	return defaultFilenameValidator.Validate(name)
}

// Validate reports whether name is safe to use as a logical file path.
// Checks run in a fixed order so the reported reason is deterministic.
func (v *FilenameValidator) Validate(name string) ValidationOutcome {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(KindEmpty)
	}

	if utf8.RuneCountInString(name) > v.maxLength {
		return invalid(KindTooLong)
	}

	if isAbsolute(name) {
		return invalid(KindAbsolute)
	}

	segments := splitSegments(name)
	for _, seg := range segments {
		if seg == ".." {
			return invalid(KindTraversal)
		}
	}

	if strings.ContainsAny(name, v.reservedChars) {
		return invalid(KindReservedChar)
	}

	if len(segments)-1 > v.maxDepth {
		return invalid(KindTooDeep)
	}

	return ValidationOutcome{Valid: true}
}

// Check is Validate expressed as an error, for store backends that must refuse
// unsafe paths on their own
func (v *FilenameValidator) Check(name string) error {
	outcome := v.Validate(name)
	if outcome.Valid {
		return nil
	}
	return NewAppError(ErrValidationFailed, "Invalid filename", 422, map[string]any{
		"filename": name,
		"reason":   string(outcome.Reason),
	})
}

func invalid(kind ErrorKind) ValidationOutcome {
	return ValidationOutcome{Valid: false, Reason: kind}
}

// isAbsolute matches a leading slash or backslash and drive prefixes like C:
func isAbsolute(name string) bool {
	if name[0] == '/' || name[0] == '\\' {
		return true
	}
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// splitSegments splits on both separators and drops empty and "." segments
func splitSegments(name string) []string {
	parts := strings.Split(strings.ReplaceAll(name, "\\", "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segments = append(segments, p)
	}
	return segments
}

// NormalizeFilename is the identity used for deduplication and existing-file
// lookups: trimmed, forward slashes, no leading "./", lower-cased.
func NormalizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	return strings.ToLower(name)
}
