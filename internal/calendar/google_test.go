package calendar

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxplan/internal/google"
)

func TestClassifyErr(t *testing.T) {
	if err := classifyErr("failed", &googleapi.Error{Code: 401}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("401 should classify as ErrUnauthorized, got %v", err)
	}
	if err := classifyErr("failed", &googleapi.Error{Code: 503}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("503 should classify as ErrUnavailable, got %v", err)
	}
	if err := classifyErr("failed", errors.New("dial tcp: refused")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("network error should classify as ErrUnavailable, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(classifyErr("failed", &googleapi.Error{Code: 500})) {
		t.Error("unavailable errors must be retryable")
	}
	if Retryable(classifyErr("failed", &googleapi.Error{Code: 403})) {
		t.Error("unauthorized errors must not be retryable")
	}
}

func TestHasWriteScopeReadsLiveCredential(t *testing.T) {
	b := &GoogleBackend{cred: &google.Credential{GrantedScopes: []string{google.ScopeGmailReadonly}}}

	ok, err := b.HasWriteScope(context.Background())
	if err != nil {
		t.Fatalf("HasWriteScope failed: %v", err)
	}
	if ok {
		t.Error("credential without calendar scope reported write capability")
	}

	// Granting the scope on the credential must be visible immediately:
	// the check may not cache its first answer.
	b.cred.GrantedScopes = append(b.cred.GrantedScopes, google.ScopeCalendarEvents)
	ok, err = b.HasWriteScope(context.Background())
	if err != nil {
		t.Fatalf("HasWriteScope failed: %v", err)
	}
	if !ok {
		t.Error("scope check did not observe updated credential")
	}
}

func TestHasWriteScopeNoCredential(t *testing.T) {
	b := &GoogleBackend{}
	if _, err := b.HasWriteScope(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("missing credential should be ErrUnauthorized, got %v", err)
	}
}
