package extractor

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/language"
)

// MaxTokenLength bounds any filename token a rule may emit
const MaxTokenLength = 100

// Rule pairs a matcher, which names the file for a fence, with an extractor,
// which produces the content. Rules are independent: each one sees every fence
// and never the output of another rule.
type Rule struct {
	ID      domain.RuleID
	Match   func(f Fence) (string, bool)
	Extract func(f Fence) string // nil means the trimmed fence body
}

// DefaultRules is the rule table in precedence order
var DefaultRules = []Rule{
	{ID: domain.RuleInlineFilename, Match: matchInlineFilename},
	{ID: domain.RuleCommentTag, Match: matchCommentTag, Extract: stripCommentTag},
	{ID: domain.RuleLeadIn, Match: matchLeadIn},
	{ID: domain.RuleSpecialName, Match: matchSpecialName},
	{ID: domain.RuleFenceLanguage, Match: matchFenceLanguage},
	{ID: domain.RuleNamedAs, Match: matchNamedAs},
}

// explicitMatchers are the rules that read a name stated in the text; the
// fence-language rule only applies when none of them names the fence
var explicitMatchers = []func(Fence) (string, bool){
	matchInlineFilename,
	matchCommentTag,
	matchLeadIn,
	matchSpecialName,
}

// specialNames maps the lower-cased conventional name to its canonical spelling
var specialNames = map[string]string{
	"dockerfile":  "Dockerfile",
	"makefile":    "Makefile",
	"rakefile":    "Rakefile",
	"gemfile":     "Gemfile",
	"procfile":    "Procfile",
	"jenkinsfile": "Jenkinsfile",
	"vagrantfile": "Vagrantfile",
}

// fenceLanguageFiles maps a fence language to the file it implies
var fenceLanguageFiles = map[string]string{
	"dockerfile":  "Dockerfile",
	"docker":      "Dockerfile",
	"makefile":    "Makefile",
	"make":        "Makefile",
	"procfile":    "Procfile",
	"jenkinsfile": "Jenkinsfile",
	"vagrantfile": "Vagrantfile",
	"gemfile":     "Gemfile",
	"rakefile":    "Rakefile",
}

var (
	commentTagRe  = regexp.MustCompile(`(?i)^\s*(?://+|#+|--|/\*+|<!--|;+|%+|\*)\s*(?:filename|file)\s*:\s*(\S+?)\s*(?:\*/|-->)?\s*$`)
	leadInVerbRe  = regexp.MustCompile(`(?i)\b(?:create|save)\s+(\S+)`)
	leadInLabelRe = regexp.MustCompile(`(?i)\b(?:filename|file)\s*:[*_]*\s*(\S+)`)
	specialNameRe = regexp.MustCompile("(?i)\\b(dockerfile|makefile|rakefile|gemfile|procfile|jenkinsfile|vagrantfile)\\b[*_`'\")]*\\s*:?[*_`'\"\\s]*$")
	namedAsRe     = regexp.MustCompile("(?i)\\b(?:create|save|make|write)\\b.*?\\b(?:named|called|as)\\s+[*_`'\"]*([^\\s*`'\":]+)[*_`'\"]*\\s*:")
)

// rule 1: ```lang filename or ```lang file=filename
func matchInlineFilename(f Fence) (string, bool) {
	fields := strings.Fields(f.Info)

	var token string
	switch {
	case len(fields) >= 1 && isFileAttr(fields[0]):
		token = fileAttrValue(fields[0])
	case len(fields) >= 2 && isFileAttr(fields[1]):
		token = fileAttrValue(fields[1])
	case len(fields) == 2:
		token = fields[1]
	default:
		return "", false
	}

	token = strings.Trim(token, "\"'`")
	if endsLikeSentence(token) || !looksLikeFilename(token) {
		return "", false
	}
	return token, true
}

// rule 2: a "filename:" or "file:" comment in the first lines of the body
func matchCommentTag(f Fence) (string, bool) {
	idx := commentTagLine(f.Body)
	if idx < 0 {
		return "", false
	}
	line := strings.Split(f.Body, "\n")[idx]
	token := cleanToken(commentTagRe.FindStringSubmatch(line)[1])
	if !looksLikeFilename(token) {
		return "", false
	}
	return token, true
}

func stripCommentTag(f Fence) string {
	idx := commentTagLine(f.Body)
	if idx < 0 {
		return strings.TrimSpace(f.Body)
	}
	lines := strings.Split(f.Body, "\n")
	lines = append(lines[:idx], lines[idx+1:]...)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// commentTagLine returns the index of the tag line among the first three non-blank lines, or -1
func commentTagLine(body string) int {
	seen := 0
	for i, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if commentTagRe.MatchString(line) {
			return i
		}
		seen++
		if seen == 3 {
			break
		}
	}
	return -1
}

// rule 3: "create app.js", "save app.js", "file: app.js" right before the fence
func matchLeadIn(f Fence) (string, bool) {
	if f.LeadIn == "" {
		return "", false
	}
	for _, re := range []*regexp.Regexp{leadInVerbRe, leadInLabelRe} {
		for _, m := range re.FindAllStringSubmatch(f.LeadIn, -1) {
			token := cleanToken(m[1])
			if looksLikeFilename(token) {
				return token, true
			}
		}
	}
	return "", false
}

// rule 4: the line before the fence ends with a conventional extensionless name
func matchSpecialName(f Fence) (string, bool) {
	m := specialNameRe.FindStringSubmatch(f.LeadIn)
	if m == nil {
		return "", false
	}
	return specialNames[strings.ToLower(m[1])], true
}

// rule 5: ```dockerfile with no explicit name implies Dockerfile
func matchFenceLanguage(f Fence) (string, bool) {
	name, ok := fenceLanguageFiles[f.Language]
	if !ok {
		return "", false
	}
	for _, explicit := range explicitMatchers {
		if _, named := explicit(f); named {
			return "", false
		}
	}
	return name, true
}

// rule 6: "write a script named build.sh:" before the fence
func matchNamedAs(f Fence) (string, bool) {
	m := namedAsRe.FindStringSubmatch(f.LeadIn)
	if m == nil {
		return "", false
	}
	token := cleanToken(m[1])
	if !looksLikeFilename(token) {
		return "", false
	}
	return token, true
}

func isFileAttr(field string) bool {
	lower := strings.ToLower(field)
	return strings.HasPrefix(lower, "file=") || strings.HasPrefix(lower, "filename=")
}

func fileAttrValue(field string) string {
	_, value, _ := strings.Cut(field, "=")
	return value
}

// cleanToken strips markdown decoration and trailing punctuation around a name
func cleanToken(token string) string {
	token = strings.TrimLeft(token, "*`'\"([")
	return strings.TrimRight(token, "*`'\")],.:;!?")
}

func endsLikeSentence(token string) bool {
	return strings.HasSuffix(token, ".") || strings.HasSuffix(token, ",") ||
		strings.HasSuffix(token, ":") || strings.HasSuffix(token, ";") ||
		strings.HasSuffix(token, "!") || strings.HasSuffix(token, "?")
}

// looksLikeFilename accepts tokens with an extension, a directory part or a
// conventional extensionless name
func looksLikeFilename(token string) bool {
	if !validToken(token) || strings.Contains(token, "://") {
		return false
	}
	if language.IsSpecialFile(token) {
		return true
	}
	slashed := strings.ReplaceAll(token, "\\", "/")
	if strings.HasSuffix(slashed, "/") {
		return false
	}
	base := path.Base(slashed)
	if base == "." || base == "/" || base == ".." {
		return false
	}
	if strings.Contains(slashed, "/") {
		return true
	}
	ext := path.Ext(base)
	if len(ext) < 2 {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// validToken enforces the limits every emitted filename obeys
func validToken(token string) bool {
	if token == "" || len(token) >= MaxTokenLength {
		return false
	}
	return !strings.ContainsFunc(token, unicode.IsSpace)
}
