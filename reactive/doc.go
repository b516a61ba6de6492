// Package reactive contains a small set of composable asynchronous pipeline
// types: [Mono], which produces at most one value, and [Flux], which produces
// an ordered sequence of values.
//
// Both types only describe a computation. Nothing runs until the pipeline is
// subscribed to with [Mono.Block], [Flux.Collect] or [Flux.Stream], and each
// subscription runs it again. Work can be moved off the subscribing goroutine
// onto a [scheduler.Scheduler] with [Mono.SubscribeOn], [Flux.PublishOn] and
// [ParallelMap].
//
// Sequences are built on github.com/destel/rill streams, i.e. channels of
// rill.Try values, so a subscribed Flux can be passed to any rill function.
package reactive
