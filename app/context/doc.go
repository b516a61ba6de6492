// Package context holds the state shared by the app and cli packages: I/O
// streams, the filesystem, configuration and long-lived resources like the
// database and metrics. It's a separate package so that cli commands can
// receive it without importing app.
package context
