// Package transfer implements the delayed-transfer store.
//
// A delayed transfer is a submission parked behind a single-use token until
// an editor approves it. Records only move forward:
//
//	pending -> processed | expired -> (purged by Cleanup)
//
// The service never locks in process. Every transition is a single
// conditional statement in the repository, so concurrent approvals of the
// same token and overlapping cleanup runs are safe.
//
// The service layer depends on the Repository interface defined in
// repository.go and never imports database/sql directly.
package transfer
