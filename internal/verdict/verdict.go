// Package verdict turns the final counters of a run into pass or fail.
package verdict

import (
	"fmt"

	"chaosq/internal/auth"
	"chaosq/internal/stats"
)

const (
	// MaxFailureRate is exclusive: a run passes only below it.
	MaxFailureRate = 0.15
	// ConnectionErrorDivisor: one user in five may fail to connect.
	ConnectionErrorDivisor = 5
	// MinConnectionErrorLimit applies to small runs.
	MinConnectionErrorLimit = 2

	ReasonPass = "request failure rate and connection errors within limits"
	ReasonFail = "request failure rate or connection errors exceeded limits"
)

type Verdict struct {
	Pass                 bool     `json:"pass"`
	Reason               string   `json:"reason"`
	Notes                []string `json:"notes"`
	FailureRate          float64  `json:"failure_rate"`
	ConnectionErrorLimit uint64   `json:"connection_error_limit"`
}

// ConnectionErrorLimit is max(2, floor(users * 0.2)).
func ConnectionErrorLimit(users int) uint64 {
	if users < 0 {
		users = 0
	}
	limit := uint64(users / ConnectionErrorDivisor)
	if limit < MinConnectionErrorLimit {
		return MinConnectionErrorLimit
	}
	return limit
}

// Evaluate is a pure function of its inputs.
func Evaluate(c stats.Counters, users int, source auth.Source) Verdict {
	rate := c.FailureRate()
	limit := ConnectionErrorLimit(users)

	v := Verdict{
		Pass:                 rate < MaxFailureRate && c.ConnectionErrors <= limit,
		FailureRate:          rate,
		ConnectionErrorLimit: limit,
	}
	if v.Pass {
		v.Reason = ReasonPass
	} else {
		v.Reason = ReasonFail
	}

	v.Notes = []string{
		fmt.Sprintf("auth: %s token", source),
		fmt.Sprintf("failure rate %.4f (limit < %.2f)", rate, MaxFailureRate),
		fmt.Sprintf("connection errors %d (limit <= %d)", c.ConnectionErrors, limit),
	}
	return v
}
