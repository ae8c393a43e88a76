// Package commit flushes enumerated jobs into the pipeline queue.
//
// FlushJobsToQueue is the one place the queue file is mutated: it takes the
// named queue lock, enumerates the parameter set, hands the entries to the
// queue writer and releases the lock on every exit path. Failures are
// returned unchanged and never retried here; callers decide whether to try
// again.
package commit
