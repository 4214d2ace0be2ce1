// Package task defines the canonical task record of the pipeline and the
// logic that creates and deduplicates it.
//
// A task is derived from a raw extracted item plus its source email
// message. Its identifier is a pure function of the source message id and
// the normalized title, so re-running extraction on an unchanged inbox
// reproduces the same identifiers and deduplication needs no mutable
// session state.
package task
