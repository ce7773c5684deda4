// Package threadpool offers a fixed-size worker(goroutine) pool fed by a single unbounded queue,
// featuring fire-and-forget submission and a shutdown that drains every queued job.
package threadpool
