package chat

// State is a position in the turn loop.
type State int

const (
	// StateAwaitingInput blocks for the next line of user text.
	StateAwaitingInput State = iota

	// StateCompletionPending waits on the completion service.
	StateCompletionPending

	// StateMemoryWritePending waits on the memory writer.
	StateMemoryWritePending

	// StateEnded is terminal.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateCompletionPending:
		return "completion_pending"
	case StateMemoryWritePending:
		return "memory_write_pending"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Outcome is how a single turn ended.
type Outcome int

const (
	// OutcomeRemembered means a reply was produced and stored in memory.
	OutcomeRemembered Outcome = iota

	// OutcomeReplied means a reply was produced with memory disabled.
	OutcomeReplied

	// OutcomeNoContent means the completion service returned nothing usable.
	OutcomeNoContent

	// OutcomeCompletionFailed means the completion service could not be reached.
	OutcomeCompletionFailed

	// OutcomeWriteFailed means a reply was produced but not remembered.
	OutcomeWriteFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemembered:
		return "remembered"
	case OutcomeReplied:
		return "replied"
	case OutcomeNoContent:
		return "no_content"
	case OutcomeCompletionFailed:
		return "completion_failed"
	case OutcomeWriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// HasReply reports whether the turn produced a reply to show.
func (o Outcome) HasReply() bool {
	return o == OutcomeRemembered || o == OutcomeReplied || o == OutcomeWriteFailed
}

// TurnResult is the result of one turn.
type TurnResult struct {
	Outcome Outcome

	// Reply is the assistant text when Outcome.HasReply.
	Reply string

	// Err is the collaborator failure behind a degraded or abandoned turn.
	Err error

	// NextID is the session's id counter after the turn.
	NextID uint64
}
