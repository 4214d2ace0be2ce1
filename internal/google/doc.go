// Package google provides the OAuth credential plumbing shared by the
// Gmail and Calendar collaborators.
//
// Token acquisition and refresh happen outside the pipeline; this package
// only wraps an already-obtained token together with the scopes the user
// actually granted. The granted scopes are consulted fresh on every run:
// the calendar-write capability check is a precondition of reconciliation
// and is never cached or bypassed.
package google
