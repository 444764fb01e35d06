// Package language maps filenames and fence tags onto canonical language tags.
package language

import (
	"path"
	"strings"
)

// Fallback is returned for anything the tables do not know
const Fallback = "text"

// specialFiles is keyed by lower-cased base name and checked before extensions
var specialFiles = map[string]string{
	"dockerfile":   "dockerfile",
	"makefile":     "makefile",
	"gnumakefile":  "makefile",
	"rakefile":     "ruby",
	"gemfile":      "ruby",
	"procfile":     "text",
	"jenkinsfile":  "groovy",
	"vagrantfile":  "ruby",
	"readme":       "markdown",
	"changelog":    "markdown",
	"license":      "text",
	"authors":      "text",
	"contributors": "text",
}

// extensions is keyed by lower-cased extension without the dot
var extensions = map[string]string{
	// source
	"go":      "go",
	"js":      "javascript",
	"mjs":     "javascript",
	"cjs":     "javascript",
	"jsx":     "javascript",
	"ts":      "typescript",
	"tsx":     "typescript",
	"py":      "python",
	"pyw":     "python",
	"rb":      "ruby",
	"java":    "java",
	"kt":      "kotlin",
	"kts":     "kotlin",
	"scala":   "scala",
	"groovy":  "groovy",
	"gradle":  "groovy",
	"c":       "c",
	"h":       "c",
	"cpp":     "cpp",
	"cc":      "cpp",
	"cxx":     "cpp",
	"hpp":     "cpp",
	"cs":      "csharp",
	"fs":      "fsharp",
	"rs":      "rust",
	"swift":   "swift",
	"m":       "objective-c",
	"php":     "php",
	"pl":      "perl",
	"lua":     "lua",
	"r":       "r",
	"dart":    "dart",
	"ex":      "elixir",
	"exs":     "elixir",
	"erl":     "erlang",
	"hs":      "haskell",
	"clj":     "clojure",
	"vue":     "vue",
	"svelte":  "svelte",
	"sh":      "bash",
	"bash":    "bash",
	"zsh":     "bash",
	"fish":    "fish",
	"ps1":     "powershell",
	"bat":     "batch",
	"cmd":     "batch",
	"sql":     "sql",
	"graphql": "graphql",
	"gql":     "graphql",
	"proto":   "protobuf",
	"tf":      "hcl",
	"hcl":     "hcl",

	// markup
	"html":     "html",
	"htm":      "html",
	"xml":      "xml",
	"svg":      "xml",
	"css":      "css",
	"scss":     "scss",
	"sass":     "sass",
	"less":     "less",
	"md":       "markdown",
	"markdown": "markdown",
	"rst":      "restructuredtext",
	"tex":      "latex",

	// config
	"json":         "json",
	"jsonc":        "json",
	"yaml":         "yaml",
	"yml":          "yaml",
	"toml":         "toml",
	"ini":          "ini",
	"cfg":          "ini",
	"conf":         "ini",
	"env":          "dotenv",
	"properties":   "properties",
	"gitignore":    "gitignore",
	"dockerignore": "gitignore",
	"editorconfig": "ini",
	"mk":           "makefile",
	"dockerfile":   "dockerfile",

	// data
	"csv": "csv",
	"tsv": "tsv",
	"txt": "text",
	"log": "text",
}

// aliases maps fence info-string tags onto the same canonical tags Classify returns
var aliases = map[string]string{
	"js":        "javascript",
	"node":      "javascript",
	"ts":        "typescript",
	"py":        "python",
	"python3":   "python",
	"rb":        "ruby",
	"golang":    "go",
	"sh":        "bash",
	"shell":     "bash",
	"zsh":       "bash",
	"console":   "bash",
	"yml":       "yaml",
	"md":        "markdown",
	"docker":    "dockerfile",
	"make":      "makefile",
	"mk":        "makefile",
	"c++":       "cpp",
	"cs":        "csharp",
	"c#":        "csharp",
	"rs":        "rust",
	"kt":        "kotlin",
	"ps":        "powershell",
	"ps1":       "powershell",
	"htm":       "html",
	"plaintext": "text",
	"plain":     "text",
	"txt":       "text",
	"tf":        "hcl",
	"terraform": "hcl",
	"objc":      "objective-c",
	"jsonc":     "json",
}

// Classify returns the language tag for filename. Lookup order: special
// extensionless names, then the extension table, then Fallback.
func Classify(filename string) string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")))
	if base == "" || base == "." || base == "/" {
		return Fallback
	}

	if lang, ok := specialFiles[base]; ok {
		return lang
	}

	ext := strings.TrimPrefix(path.Ext(base), ".")
	if ext == "" {
		return Fallback
	}
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	return Fallback
}

// Normalize canonicalizes a fence language tag ("js" becomes "javascript").
// Unknown tags are returned lower-cased and unchanged; empty stays empty.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if canonical, ok := aliases[tag]; ok {
		return canonical
	}
	return tag
}

// IsSpecialFile reports whether the base name is a known extensionless project file
func IsSpecialFile(filename string) bool {
	_, ok := specialFiles[strings.ToLower(path.Base(filename))]
	return ok
}
