package domain

const (
	EventNameSessionStarted   = "session.started"
	EventNameSessionFinalized = "session.finalized"
)

type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

// EventSessionFinalized is published after the finalize transaction commits.
type EventSessionFinalized struct {
	Session  Session
	Activity Activity
}

func (EventSessionFinalized) Name() string { return EventNameSessionFinalized }
