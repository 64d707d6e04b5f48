package changerequest

// SubmittedEvent is published after a submission commits.
type SubmittedEvent struct {
	Request      ChangeRequest
	AutoApproved bool
}

// DecidedEvent is published after a review decision commits.
type DecidedEvent struct {
	Request       ChangeRequest
	Decision      Decision
	ReviewerID    int64
	// ChangedFields names the task fields an approved UPDATE modified.
	ChangedFields []string
}
