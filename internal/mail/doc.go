// Package mail defines the immutable email message input of a pipeline run
// and the message source collaborators that produce it.
//
// The Gmail-backed source fetches messages matching a configurable query,
// extracts headers and decodes message bodies. Messages are read-only for
// the duration of a run; everything downstream references them only through
// their stable provider-assigned identifier.
package mail
