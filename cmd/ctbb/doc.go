// Command ctbb queues CT reconstruction jobs for the pipeline daemon.
//
// `ctbb launch` reads the configured case list, expands every case into the
// dose, slice thickness and kernel cross-product, and commits the resulting
// entries to <library>/.proc/queue under the shared queue lock before
// optionally starting the daemon. The remaining commands inspect or manage
// the queue, its lock, the commit history, the daemon and the configuration.
package main
