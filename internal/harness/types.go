package harness

import "fmt"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Subject string `json:"subject,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	subject := e.Subject
	if subject == "" {
		subject = "-"
	}
	line := fmt.Sprintf("%02d %s %s -> %s", e.Step, e.Op, subject, e.Outcome)
	if e.Detail != "" {
		line += " " + e.Detail
	}
	return line
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step had its expected outcome and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
