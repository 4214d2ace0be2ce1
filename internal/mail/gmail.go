package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	netmail "net/mail"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/inboxplan/internal/logging"
)

// GmailSource fetches messages from Gmail using the Users API.
type GmailSource struct {
	svc        *gmail.UsersService
	query      string
	maxResults int64
	logger     *slog.Logger
}

// NewGmailSource creates a Gmail-backed message source. The HTTP client must
// already carry OAuth2 authentication for the user.
func NewGmailSource(ctx context.Context, client *http.Client, query string, maxResults int64, logger *slog.Logger) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailSource{
		svc:        svc.Users,
		query:      query,
		maxResults: maxResults,
		logger:     logger,
	}, nil
}

// FetchRecent lists messages matching the configured query and fetches each
// in full format. Messages without a stable identifier are skipped and
// logged; a failure to reach Gmail at all is returned as a run-level error.
func (s *GmailSource) FetchRecent(ctx context.Context) ([]Message, error) {
	res, err := s.svc.Messages.List("me").
		Q(s.query).
		MaxResults(s.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyGoogleErr("failed to list messages", err)
	}

	var messages []Message
	for _, ref := range res.Messages {
		if ref.Id == "" {
			s.logger.Warn("skipping message without identifier", logging.Operation("fetch"))
			continue
		}

		full, err := s.svc.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			// A single unfetchable message does not abort the batch.
			s.logger.Warn("failed to fetch message",
				logging.Operation("fetch"),
				logging.MessageID(ref.Id),
				logging.Err(err))
			continue
		}

		messages = append(messages, toMessage(full))
	}

	return messages, nil
}

// toMessage converts a full-format Gmail message into the pipeline's
// immutable message type.
func toMessage(m *gmail.Message) Message {
	msg := Message{ID: m.Id}

	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "Subject":
				msg.Subject = h.Value
			case "From":
				msg.Sender = h.Value
			case "Date":
				if msg.Received.IsZero() {
					if t, err := netmail.ParseDate(h.Value); err == nil {
						msg.Received = t
					}
				}
			}
		}
	}

	// InternalDate is authoritative when present (epoch milliseconds).
	if m.InternalDate > 0 {
		msg.Received = time.UnixMilli(m.InternalDate).UTC()
	}

	msg.Body = extractBody(m)
	return msg
}

// extractBody decodes the text/plain body of a message, walking multipart
// payloads. It falls back to the snippet when no text part decodes.
func extractBody(m *gmail.Message) string {
	if m.Payload == nil {
		return m.Snippet
	}
	if body := findTextPart(m.Payload); body != "" {
		return body
	}
	return m.Snippet
}

func findTextPart(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		if decoded := decodeBody(part.Body.Data); decoded != "" {
			return decoded
		}
	}
	for _, p := range part.Parts {
		if body := findTextPart(p); body != "" {
			return body
		}
	}
	// Single-part messages carry the body on the payload itself.
	if len(part.Parts) == 0 && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	return ""
}

// decodeBody decodes base64url body data. Gmail emits RFC 4648 base64url,
// usually without padding; standard base64 is tried last for compatibility.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return ""
}

// classifyGoogleErr wraps a Google API error with the matching source
// sentinel so callers can branch on the failure class.
func classifyGoogleErr(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w: %w", msg, ErrUnauthorized, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
}
