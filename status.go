package paperless

// Status is the connectivity status of a sensor, published as its entity state.
type Status string

const (
	// StatusOnline indicates every fetch of the cycle answered 200.
	StatusOnline Status = "online"

	// StatusAuthFailure indicates the API rejected the token with 401.
	StatusAuthFailure Status = "authentication_failure"

	// StatusOffline indicates a transport failure, a non-200 status other
	// than 401, or an undecodable response.
	StatusOffline Status = "offline"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// severity orders statuses for folding several fetch outcomes into one.
func (s Status) severity() int {
	switch s {
	case StatusOnline:
		return 0
	case StatusOffline:
		return 1
	case StatusAuthFailure:
		return 2
	default:
		return 1
	}
}

// worst returns the most severe of the given statuses.
// An authentication failure outranks offline, which outranks online.
func worst(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusOffline
	}
	result := statuses[0]
	for _, s := range statuses[1:] {
		if s.severity() > result.severity() {
			result = s
		}
	}
	return result
}

// statusFromCode maps an HTTP status code to a connectivity status.
func statusFromCode(code int) Status {
	switch {
	case code == 401:
		return StatusAuthFailure
	case code == 200:
		return StatusOnline
	default:
		return StatusOffline
	}
}
