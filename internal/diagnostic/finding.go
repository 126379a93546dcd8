package diagnostic

import (
	"cmp"
	"fmt"
	"go/token"
	"slices"
	"strings"

	"mapcheck/internal/common"
)

// Severity represents the severity level of a finding.
type Severity int

const (
	SeverityHint Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	for sev := SeverityHint; sev <= SeverityError; sev++ {
		if strings.EqualFold(sev.String(), s) {
			return sev, nil
		}
	}

	return 0, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = sev

	return nil
}

// Property keys of Finding.Properties.
const (
	PropSourceType      = "source_type"
	PropDestinationType = "destination_type"
	PropSourceMember    = "source_member"
	PropVerdict         = "verdict"
	PropCanonical       = "canonical"
	PropReverseOf       = "reverse_of"
	PropCycle           = "cycle"
	PropCategory        = "category"
	PropCall            = "call"
	PropCandidate       = "candidate"
	PropNestedSource    = "nested_source"
	PropNestedDest      = "nested_destination"
	PropOverride        = "override"
)

// Finding is one reported diagnostic.
type Finding struct {
	Code     string   `json:"code" yaml:"code"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	// Args are the message arguments, in message order.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	Pos      token.Pos      `json:"-" yaml:"-"`
	Position token.Position `json:"position" yaml:"position"`

	// TypePair identifies the declaration the finding belongs to.
	TypePair string `json:"type_pair,omitempty" yaml:"type_pair,omitempty"`
	// Member is the destination member, if any.
	Member string `json:"member,omitempty" yaml:"member,omitempty"`
	// Decl is the discovery index of the declaration.
	Decl int `json:"-" yaml:"-"`

	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// New returns a finding with the default severity of code and a message
// formatted from the catalog template.
func New(code string, pos token.Pos, args ...string) Finding {
	f := Finding{
		Code:       code,
		Severity:   SeverityWarning,
		Pos:        pos,
		Args:       args,
		Properties: map[string]string{},
	}

	if entry, ok := Lookup(code); ok {
		f.Severity = entry.Severity
		f.Message = entry.format(args)
	} else {
		f.Message = strings.Join(args, " ")
	}

	return f
}

// With sets a property and returns the finding.
func (f Finding) With(key, value string) Finding {
	if f.Properties == nil {
		f.Properties = map[string]string{}
	}

	f.Properties[key] = value

	return f
}

// String returns a formatted finding string.
func (f Finding) String() string {
	var prefix []string
	if f.Position.IsValid() {
		prefix = append(prefix, f.Position.String())
	}

	if f.TypePair != "" {
		prefix = append(prefix, "["+f.TypePair+"]")
	}

	if f.Member != "" {
		prefix = append(prefix, f.Member)
	}

	msg := fmt.Sprintf("%s [%s] %s", f.Severity, f.Code, f.Message)
	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}

// Sort orders findings by file, offset, then code and member.
func Sort(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.Position.Filename, b.Position.Filename),
			cmp.Compare(a.Position.Offset, b.Position.Offset),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Member, b.Member),
		)
	})
}

// Count returns the number of findings at or above min.
func Count(findings []Finding, minSeverity Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity >= minSeverity {
			n++
		}
	}

	return n
}
