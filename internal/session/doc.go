// Package session is the per-stream rep counter.
//
// A RepCounterSession owns all state carried between frames: the elbow
// and knee smoothing buffers, the push-up and squat machines with their
// counters, and the side selector. One session is built per stream and
// fed every frame in order through Process; it is never reset midway.
// Replaying the same ordered observations into a fresh session yields
// the same counts and transition history.
package session
