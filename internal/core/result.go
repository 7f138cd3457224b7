package core

// OutcomeStatus tags the result of one toggle interaction.
type OutcomeStatus string

const (
	OutcomeSuccess    OutcomeStatus = "success"
	OutcomeFailure    OutcomeStatus = "failed"
	OutcomeSuperseded OutcomeStatus = "superseded"
)

// Outcome is the result of a single Set call. It only lives for the
// duration of one request; history keeps a summary of it.
type Outcome struct {
	Status OutcomeStatus

	// Reason is the human readable failure message.
	Reason string

	// Err is the technical error behind a failure.
	Err error
}

// Succeeded returns a success outcome.
func Succeeded() Outcome {
	return Outcome{Status: OutcomeSuccess}
}

// Failed returns a failure outcome.
func Failed(err error, reason string) Outcome {
	return Outcome{
		Status: OutcomeFailure,
		Reason: reason,
		Err:    err,
	}
}

// Superseded returns the outcome of an interaction replaced by a newer one.
func Superseded() Outcome {
	return Outcome{Status: OutcomeSuperseded}
}

// OK reports whether the interaction succeeded.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSuccess
}
