// Package mutex provides named, cross-process locks scoped to a directory.
//
// Every queue mutation runs under one of these locks. Two backends share the
// Locker interface: "dir" creates a marker directory <dir>/<name>.lock with
// an owner record inside, which any cooperating process (including tools
// written in other languages) can see and remove; "flock" holds an advisory
// lock on <dir>/<name>.flock via gofrs/flock. Acquisition polls until the
// lock is free and gives up with a TimeoutError after the configured bound.
package mutex
