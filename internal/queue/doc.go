// Package queue writes job entries into the plain-text queue file consumed
// by the reconstruction daemon.
//
// The queue is one entry per line (see package jobs for the line format).
// Normal priority appends new entries after the existing backlog; high
// priority places them ahead of it by rewriting the file through a temporary
// sibling and an atomic rename, so readers never observe a half-written
// queue.
//
// Writers do not lock. Callers hold the queue lock (package mutex) around
// Commit, Read and Stats; package commit does this for the launcher.
package queue
