package challenge

// Status is the lifecycle state of a challenge. Every non-InProgress
// value is terminal: no trade may open and no rule check fires again.
type Status string

const (
	InProgress    Status = "IN_PROGRESS"
	Passed        Status = "PASSED"
	FailedDailyDD Status = "FAILED_DAILY_DD"
	FailedMaxDD   Status = "FAILED_MAX_DD"
	FailedTime    Status = "FAILED_TIME"
)

// Terminal reports whether the challenge has reached a final state.
func (s Status) Terminal() bool {
	return s != InProgress
}

// Valid reports whether s is one of the five known states.
func (s Status) Valid() bool {
	switch s {
	case InProgress, Passed, FailedDailyDD, FailedMaxDD, FailedTime:
		return true
	}
	return false
}
