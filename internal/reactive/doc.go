// Package reactive implements the observation engine behind a context root.
//
// A Manager installs traps on the property slots along every observed
// identifier and an interceptor on every array those identifiers pass
// through. Assignments routed through a trap notify the listeners of the
// identifier and recompute every observed identifier below it, so replacing
// an ancestor object is enough to notify deep listeners. Interception is
// removed again as soon as nothing below a slot is observed.
package reactive
