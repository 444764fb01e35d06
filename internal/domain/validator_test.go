package domain

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilename_Accepted(t *testing.T) {
	for _, name := range []string{
		"app.js",
		"src/app.js",
		"folder/sub/file.ext",
		"Dockerfile",
		"./main.go",
		"a..b.txt",
		strings.Repeat("a", 255),
	} {
		outcome := ValidateFilename(name)
		assert.True(t, outcome.Valid, "expected %q to be valid, got %s", name, outcome.Reason)
		assert.Empty(t, outcome.Reason)
	}
}

func TestValidateFilename_Rejected(t *testing.T) {
	cases := map[string]ErrorKind{
		"":                     KindEmpty,
		"   ":                  KindEmpty,
		"../secret":            KindTraversal,
		"src/../../etc/passwd": KindTraversal,
		"..\\windows":          KindTraversal,
		"/etc/passwd":          KindAbsolute,
		"\\server\\share.txt":  KindAbsolute,
		"C:\\temp\\x.txt":      KindAbsolute,
		"d:file.txt":           KindAbsolute,
		"a<b.txt":              KindReservedChar,
		"what?.md":             KindReservedChar,
		"star*.go":             KindReservedChar,
		"pipe|.sh":             KindReservedChar,
		"quote\".txt":          KindReservedChar,
		"nul\x00.txt":          KindReservedChar,
		"src/time:stamp.log":   KindReservedChar,
		"a/b/c/d.txt":          KindTooDeep,
	}
	cases[strings.Repeat("a", 256)] = KindTooLong

	for name, want := range cases {
		outcome := ValidateFilename(name)
		assert.False(t, outcome.Valid, "expected %q to be invalid", name)
		assert.Equal(t, want, outcome.Reason, "reason for %q", name)
	}
}

func TestValidateFilename_LengthCountsCharacters(t *testing.T) {
	// 255 multi-byte runes are within the limit even though the byte length is larger
	name := strings.Repeat("é", 255)
	require.Greater(t, len(name), 255)
	assert.True(t, ValidateFilename(name).Valid)
	assert.Equal(t, KindTooLong, ValidateFilename(name+"é").Reason)
}

func TestFilenameValidator_Check(t *testing.T) {
	v := NewFilenameValidator()

	require.NoError(t, v.Check("src/app.js"))

	err := v.Check("../secret")
	require.Error(t, err)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrValidationFailed, appErr.Code)
	assert.Equal(t, 422, appErr.StatusCode)
	assert.Equal(t, "traversal", appErr.Details.(map[string]any)["reason"])
}

func TestNormalizeFilename(t *testing.T) {
	assert.Equal(t, "app.js", NormalizeFilename("  ./App.JS "))
	assert.Equal(t, "src/main.go", NormalizeFilename("src\\Main.go"))
	assert.Equal(t, "dockerfile", NormalizeFilename("././Dockerfile"))
}

// Property 1: any filename with a ".." segment is rejected
func TestProperty_TraversalAlwaysRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a path containing a .. segment is never valid", prop.ForAll(
		func(prefix, suffix string) bool {
			name := prefix + "/../" + suffix
			outcome := ValidateFilename(name)
			return !outcome.Valid
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 2: short alphanumeric names with an extension are always valid
func TestProperty_SimpleNamesAccepted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("name.ext within the length limit is valid", prop.ForAll(
		func(base, ext string) bool {
			outcome := ValidateFilename(base + "." + ext)
			return outcome.Valid
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) <= 100 }),
		gen.OneConstOf("go", "js", "py", "md", "yaml"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 3: validation is deterministic and side-effect free
func TestProperty_ValidationDeterministic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validating twice gives the same outcome", prop.ForAll(
		func(name string) bool {
			return ValidateFilename(name) == ValidateFilename(name)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
