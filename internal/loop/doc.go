// Package loop runs the iteration loop: a controller that repeats an
// executor pass until something other than a detected commit happens, and
// the session state shared between them.
//
// Cancellation is cooperative. Stop only raises a flag; the executor and
// the commit watcher inspect it at every checkpoint and skip the remaining
// steps once it is set.
package loop
