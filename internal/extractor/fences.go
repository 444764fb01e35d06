package extractor

import "strings"

// Fence is one closed ``` block found in the text
type Fence struct {
	Index    int    // 0-based position among closed fences
	Info     string // everything after the opening backticks
	Language string // first info field, lower-cased; empty for key=value headers
	Body     string // raw lines between the fences
	LeadIn   string // last non-blank line before the fence, since the previous fence closed
}

// ScanFences splits text into fenced blocks. It recognizes opening fences like:
//
//	```
//	```go
//	```js app.js
//	```yaml file=config.yaml
//
// A fence that is never closed is dropped. Returns fences in order of appearance.
func ScanFences(text string) []Fence {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var fences []Fence
	var current *Fence
	var buf strings.Builder
	leadIn := ""

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if current != nil {
			if trimmed == "```" {
				current.Body = buf.String()
				fences = append(fences, *current)
				current = nil
				leadIn = ""
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			info := strings.TrimSpace(trimmed[3:])
			// ```inline``` on one line, or a longer backtick run, is not a block opener
			if !strings.Contains(info, "`") {
				current = &Fence{
					Index:    len(fences),
					Info:     info,
					Language: infoLanguage(info),
					LeadIn:   leadIn,
				}
				buf.Reset()
				continue
			}
		}

		if trimmed != "" {
			leadIn = trimmed
		}
	}

	return fences
}

func infoLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 || strings.Contains(fields[0], "=") {
		return ""
	}
	return strings.ToLower(fields[0])
}
