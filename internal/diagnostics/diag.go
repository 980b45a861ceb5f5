package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes reported by the command processor and the modules.
const (
	LookupMiss   = "CMD.LOOKUP_MISS"
	Unrecognized = "CMD.UNRECOGNIZED"
	Malformed    = "CMD.MALFORMED"
	Degraded     = "MODULE.DEGRADED"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics as they are produced.
type Sink func(Diagnostic)

// Emit calls s if it is set.
func (s Sink) Emit(d Diagnostic) {
	if s != nil {
		s(d)
	}
}
