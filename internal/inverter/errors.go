package inverter

import "fmt"

// FetchErrorKind classifies a failed status page retrieval.
type FetchErrorKind int

const (
	FetchTimeout FetchErrorKind = iota
	FetchAuthRejected
	FetchUnreachable
	FetchMalformedTransport
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchAuthRejected:
		return "auth_rejected"
	case FetchUnreachable:
		return "unreachable"
	case FetchMalformedTransport:
		return "malformed_transport"
	}
	return "unknown"
}

// FetchError wraps a transport failure against the inverter's web server.
type FetchError struct {
	Kind   FetchErrorKind
	Status int // HTTP status, when one was received
	err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Kind, e.err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: status %d", e.Kind, e.Status)
	default:
		return fmt.Sprintf("fetch %s", e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.err }

// Transient reports whether a retry within the same cycle could succeed.
// Timeouts and unreachability clear when the device wakes up; rejected
// credentials and broken responses do not.
func (e *FetchError) Transient() bool {
	return e.Kind == FetchTimeout || e.Kind == FetchUnreachable
}

// ParseErrorKind classifies an undecodable status page.
type ParseErrorKind int

const (
	ParseUnexpectedFormat ParseErrorKind = iota
	ParseMissingSection
)

func (k ParseErrorKind) String() string {
	if k == ParseMissingSection {
		return "missing_section"
	}
	return "unexpected_format"
}

// ParseError reports a payload that does not look like an inverter
// status page. Section is set for ParseMissingSection.
type ParseError struct {
	Kind    ParseErrorKind
	Section string
}

func (e *ParseError) Error() string {
	if e.Kind == ParseMissingSection {
		return fmt.Sprintf("parse: section %s missing from status page", e.Section)
	}
	return "parse: no status variables found in payload"
}

// Transient is always false: the same payload parses the same way.
func (e *ParseError) Transient() bool { return false }
