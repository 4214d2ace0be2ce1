// Package calendar provides the calendar backend the reconciliation
// engine writes events through.
//
// The Google-backed implementation wraps the Calendar API events service.
// The write-scope check inspects the granted scopes of the live credential
// on every call; it is a hard precondition of event creation and cannot be
// bypassed.
package calendar
