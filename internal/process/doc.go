// Package process terminates the browser process tree left behind by the
// Chrome engine.
package process
