package task

// Status 任务状态
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"

	// client side terminals, never reported by a provider
	StatusTimedOut Status = "TIMED_OUT"
	StatusCanceled Status = "CANCELED"
)

// ParseStatus maps a provider status code onto Status. The second result is
// false for codes outside the provider vocabulary; those map to
// StatusRunning so that polling continues.
func ParseStatus(code string) (Status, bool) {
	switch code {
	case "PENDING":
		return StatusPending, true
	case "RUNNING":
		return StatusRunning, true
	case "SUCCEEDED":
		return StatusSucceeded, true
	case "FAILED":
		return StatusFailed, true
	default:
		return StatusRunning, false
	}
}

func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
