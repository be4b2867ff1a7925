// Package health runs readiness and liveness checks and renders their results
// as JSON for the health endpoints.
package health

import (
	"context"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Check is one named health check. checkLiveness is true when only liveness
// is asked for.
type Check struct {
	Name  string
	Check func(ctx context.Context, checkLiveness bool) (int, string, error)
}

type result struct {
	Resource     string                `json:"resource"`
	Status       string                `json:"status"`
	Error        string                `json:"error,omitempty"`
	Message      string                `json:"message,omitempty"`
	Dependencies []jsoniter.RawMessage `json:"dependencies,omitempty"`
}

type report struct {
	Status       string                `json:"status"`
	Dependencies []jsoniter.RawMessage `json:"dependencies"`
}

// CheckAll runs every check. The overall status is 503 as soon as one check
// fails or errors. A check message that is itself a JSON object is nested as
// a dependency.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	overall := report{Dependencies: make([]jsoniter.RawMessage, 0, len(checks))}
	overallStatus := http.StatusOK

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		r := result{Resource: check.Name, Status: strconv.Itoa(status)}

		if err != nil {
			r.Error = err.Error()
		}

		if isJSONObject(message) {
			r.Dependencies = []jsoniter.RawMessage{jsoniter.RawMessage(message)}
		} else {
			r.Message = message
		}

		b, err := json.Marshal(r)
		if err != nil {
			return http.StatusInternalServerError, "", err
		}

		overall.Dependencies = append(overall.Dependencies, b)
	}

	overall.Status = strconv.Itoa(overallStatus)

	b, err := json.Marshal(overall)
	if err != nil {
		return http.StatusInternalServerError, "", err
	}

	return overallStatus, string(b), nil
}

func isJSONObject(s string) bool {
	return len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' && json.Valid([]byte(s))
}
