package qc

// Logger is the subset of the application logger the engine needs. The
// leveled logger in internal satisfies it.
type Logger interface {
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// EventKind classifies run-log entries
type EventKind string

const (
	// EventSkippedRule records a rule that was a no-op because a variable
	// it needs is absent from the dataset
	EventSkippedRule EventKind = "skipped_rule"
	// EventEvalFailure records an expression that failed to parse or
	// evaluate and was coerced to false
	EventEvalFailure EventKind = "evaluation_failure"
	// EventUnknownKind records a rule whose kind tag no handler recognizes
	EventUnknownKind EventKind = "unrecognized_kind"
)

// Event is one skip or failure observed during a run
type Event struct {
	Kind     EventKind `json:"kind"`
	Rule     string    `json:"rule"`
	Variable string    `json:"variable,omitempty"`
	Detail   string    `json:"detail"`
}

// RunLog accumulates every skipped rule and evaluation failure of one run.
// A run's outputs are only meaningful alongside this log: a clean-looking
// dataset with silently skipped rules would misreport the QC that actually
// happened.
type RunLog struct {
	Events []Event
	logger Logger
}

// NewRunLog creates a run log that echoes to the given logger. A nil logger
// records events without echoing.
func NewRunLog(logger Logger) *RunLog {
	return &RunLog{logger: logger}
}

// SkippedRule records a missing-variable no-op
func (l *RunLog) SkippedRule(rule, variable, detail string) {
	l.Events = append(l.Events, Event{
		Kind: EventSkippedRule, Rule: rule, Variable: variable, Detail: detail,
	})
	if l.logger != nil {
		l.logger.Info("[QC] rule %q skipped: %s", rule, detail)
	}
}

// EvalFailure records an expression coerced to false
func (l *RunLog) EvalFailure(rule, expression string, err error) {
	l.Events = append(l.Events, Event{
		Kind: EventEvalFailure, Rule: rule, Detail: expression + ": " + err.Error(),
	})
	if l.logger != nil {
		l.logger.Warn("[QC] rule %q expression %q failed, treated as false: %v", rule, expression, err)
	}
}

// UnknownKind records a rule with an unrecognized kind tag
func (l *RunLog) UnknownKind(rule, kind string) {
	l.Events = append(l.Events, Event{
		Kind: EventUnknownKind, Rule: rule, Detail: "unrecognized kind " + kind,
	})
	if l.logger != nil {
		l.logger.Warn("[QC] rule %q has unrecognized kind %q, skipped", rule, kind)
	}
}

// Skips returns only the skipped-rule events
func (l *RunLog) Skips() []Event {
	return l.filter(EventSkippedRule)
}

// Failures returns only the evaluation-failure events
func (l *RunLog) Failures() []Event {
	return l.filter(EventEvalFailure)
}

func (l *RunLog) filter(kind EventKind) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
