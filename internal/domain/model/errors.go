package model

import "errors"

// Lifecycle errors surfaced to the acting user as ephemeral messages, never
// as HTTP failures.
var (
	// ErrApprovalNotFound means no approval record exists for the id.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrAlreadyActioned means the approval left pending before this request
	// got to it (duplicate click, second device, lost race).
	ErrAlreadyActioned = errors.New("approval already actioned")

	// ErrApprovalExpired means the deadline passed while the record still
	// read pending.
	ErrApprovalExpired = errors.New("approval expired")
)
