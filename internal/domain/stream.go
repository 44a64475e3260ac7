package domain

// StreamStatus is the outcome of the latest check of an entry.
type StreamStatus string

const (
	StreamStatusPending     StreamStatus = "pending"
	StreamStatusLive        StreamStatus = "live"
	StreamStatusOffline     StreamStatus = "offline"
	StreamStatusUnsupported StreamStatus = "unsupported"
	StreamStatusConfigError StreamStatus = "config_error"
	StreamStatusAPIError    StreamStatus = "api_error"
	StreamStatusError       StreamStatus = "error"
)

func (s StreamStatus) String() string {
	return string(s)
}

func (s StreamStatus) IsValid() bool {
	switch s {
	case StreamStatusPending, StreamStatusLive, StreamStatusOffline, StreamStatusUnsupported,
		StreamStatusConfigError, StreamStatusAPIError, StreamStatusError:
		return true
	default:
		return false
	}
}

// IsSuccess reports a substantively meaningful result (Live or Offline).
func (s StreamStatus) IsSuccess() bool {
	return s == StreamStatusLive || s == StreamStatusOffline
}

// IsFailure reports any terminal status other than Live and Offline.
func (s StreamStatus) IsFailure() bool {
	return s.IsValid() && s != StreamStatusPending && !s.IsSuccess()
}

func (s StreamStatus) Label() string {
	switch s {
	case StreamStatusPending:
		return "Pending"
	case StreamStatusLive:
		return "Live"
	case StreamStatusOffline:
		return "Offline"
	case StreamStatusUnsupported:
		return "Unsupported"
	case StreamStatusConfigError:
		return "Config Error"
	case StreamStatusAPIError:
		return "API Error"
	case StreamStatusError:
		return "Error"
	default:
		return string(s)
	}
}

// Severity grades messages shown to the user.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)
