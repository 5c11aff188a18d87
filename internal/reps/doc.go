// Package reps owns the repetition state machines.
//
// Each exercise has a three-state machine (unset, up, down) driven by a
// smoothed joint angle. Entering and leaving a state use different
// thresholds, and the band between them is a dead zone in which nothing
// happens, so noise around one threshold cannot count twice. A counter
// is incremented exactly once per completed movement.
//
// Key types: PushupMachine, SquatMachine, Transition.
//
// The machines hold no locks; a session drives them from one goroutine.
package reps
