// Package pose owns the landmark layer of the rep counter.
//
// Responsibilities: the per-frame landmark data model (joint kind x body
// side), the static MediaPipe index table, and the interfaces through
// which an external pose estimator feeds the core: Provider (frame in,
// landmarks out), FrameSource and Stream. Recorded landmark streams are
// read and written as JSON lines; a sidecar process may produce the same
// format on its stdout.
//
// Dependency rule: pose never imports the angle, smoothing, rep or
// session packages.
package pose
