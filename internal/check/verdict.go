package check

import "fmt"

// Verdict is the outcome of one rule: a pass, or a failure with a reason.
type Verdict struct {
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Pass returns a passing verdict.
func Pass(rule string) Verdict {
	return Verdict{Rule: rule, Passed: true}
}

// Fail returns a failing verdict with a formatted reason.
func Fail(rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Passed: false, Message: fmt.Sprintf(format, args...)}
}
