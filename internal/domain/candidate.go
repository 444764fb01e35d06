package domain

import "time"

// RuleID identifies one of the extraction strategies. The numeric order is the
// precedence order: a lower RuleID wins over a higher one for the same file.
type RuleID int

const (
	// RuleInlineFilename reads the filename from the fence info string (```js app.js)
	RuleInlineFilename RuleID = iota + 1
	// RuleCommentTag reads a "filename:" comment from the first lines of the body
	RuleCommentTag
	// RuleLeadIn reads "create/save <name>" or "file: <name>" from the line before the fence
	RuleLeadIn
	// RuleSpecialName reads a conventional extensionless name (Dockerfile) from the line before the fence
	RuleSpecialName
	// RuleFenceLanguage synthesizes a conventional filename from the fence language
	RuleFenceLanguage
	// RuleNamedAs reads "... named/called/as <name>:" from the line before the fence
	RuleNamedAs
)

var ruleNames = map[RuleID]string{
	RuleInlineFilename: "inline-filename",
	RuleCommentTag:     "comment-tag",
	RuleLeadIn:         "lead-in",
	RuleSpecialName:    "special-name",
	RuleFenceLanguage:  "fence-language",
	RuleNamedAs:        "named-as",
}

// String returns the stable kebab-case name of the rule
func (r RuleID) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the rule by name so JSON and YAML output stay readable
func (r RuleID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// CodeBlockCandidate is one code block discovered in assistant text, before
// validation and reconciliation
type CodeBlockCandidate struct {
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	Language   string `json:"language,omitempty"`
	SourceRule RuleID `json:"source_rule"`
	FenceIndex int    `json:"fence_index"` // 0-based position of the fence in the text
}

// ErrorKind classifies why a candidate was rejected
type ErrorKind string

const (
	KindEmpty        ErrorKind = "empty"
	KindTraversal    ErrorKind = "traversal"
	KindAbsolute     ErrorKind = "absolute"
	KindReservedChar ErrorKind = "reserved-char"
	KindTooLong      ErrorKind = "too-long"
	KindTooDeep      ErrorKind = "too-deep"
	KindStorage      ErrorKind = "storage"
	KindCancelled    ErrorKind = "cancelled"
)

// ValidationOutcome is the result of validating a candidate filename
type ValidationOutcome struct {
	Valid  bool      `json:"valid"`
	Reason ErrorKind `json:"reason,omitempty"`
}

// File is a persisted file handle as returned by a FileStore
type File struct {
	ID        string    `json:"id" yaml:"id"`
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	Language  string    `json:"language" yaml:"language"`
	Size      int       `json:"size" yaml:"size"`
	Content   string    `json:"content,omitempty" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// OutcomeKind is the reconciliation decision for one candidate
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome is the final per-candidate result of processing assistant text
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Filename string      `json:"filename"`
	Language string      `json:"language,omitempty"`
	Rule     RuleID      `json:"rule"`
	Reason   ErrorKind   `json:"reason,omitempty"`
	Message  string      `json:"message,omitempty"`
	File     *File       `json:"file,omitempty"`
}

// Summary aggregates the outcomes of one ProcessAssistantText call
type Summary struct {
	Created  []string  `json:"created"`
	Updated  []string  `json:"updated"`
	Errors   []string  `json:"errors"`
	Outcomes []Outcome `json:"outcomes"`
}

// NewSummary returns a summary whose slices are empty rather than nil
func NewSummary() *Summary {
	return &Summary{
		Created:  []string{},
		Updated:  []string{},
		Errors:   []string{},
		Outcomes: []Outcome{},
	}
}

// Add records an outcome in the matching summary list
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case OutcomeCreated:
		s.Created = append(s.Created, o.Filename)
	case OutcomeUpdated:
		s.Updated = append(s.Updated, o.Filename)
	default:
		msg := o.Message
		if msg == "" {
			msg = string(o.Reason)
		}
		s.Errors = append(s.Errors, o.Filename+": "+msg)
	}
}

// PlannedFile describes what processing would do with a candidate, without touching storage
type PlannedFile struct {
	Filename string    `json:"filename"`
	Language string    `json:"language"`
	Rule     RuleID    `json:"rule"`
	Valid    bool      `json:"valid"`
	Reason   ErrorKind `json:"reason,omitempty"`
	Size     int       `json:"size"`
}

// CacheStats represents cache performance metrics
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Size     int     `json:"size"`
	MaxSize  int     `json:"max_size"`
	HitRatio float64 `json:"hit_ratio"`
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string         `json:"status"` // "healthy", "unhealthy", "degraded"
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Health status constants
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
	HealthStatusDegraded  = "degraded"
)

// SystemHealth represents overall system health
type SystemHealth struct {
	Status     string                  `json:"status"`
	Timestamp  time.Time               `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
	Metrics    map[string]any          `json:"metrics,omitempty"`
	Uptime     time.Duration           `json:"uptime"`
}
