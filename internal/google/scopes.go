package google

// OAuth scopes the pipeline needs for full functionality.
//
// Gmail access is read-only; the pipeline never mutates the mailbox.
// Calendar events scope is required only for sync: a credential without it
// still produces a task list, with due-dated tasks marked sync-failed.
const (
	ScopeOpenID        = "openid"
	ScopeUserinfoEmail = "https://www.googleapis.com/auth/userinfo.email"
	ScopeGmailReadonly = "https://www.googleapis.com/auth/gmail.readonly"

	ScopeCalendar       = "https://www.googleapis.com/auth/calendar"
	ScopeCalendarEvents = "https://www.googleapis.com/auth/calendar.events"
)

// DefaultOAuthScopes are the scopes requested during authorization.
var DefaultOAuthScopes = []string{
	ScopeOpenID,
	ScopeUserinfoEmail,
	ScopeGmailReadonly,
	ScopeCalendarEvents,
}

// HasCalendarWriteScope reports whether the granted scopes carry
// calendar-write capability. Both the full calendar scope and the
// events-only scope qualify.
func HasCalendarWriteScope(granted []string) bool {
	for _, s := range granted {
		if s == ScopeCalendar || s == ScopeCalendarEvents {
			return true
		}
	}
	return false
}
