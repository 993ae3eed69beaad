// Package approval holds the sequential approval engine: role ordering, step
// assignment, per-step transitions, progress and the current-actor gate.
//
// Everything here is a pure function of roles and persisted step rows. The
// service layer owns transactions and persistence.
package approval
