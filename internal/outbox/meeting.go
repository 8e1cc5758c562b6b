package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TokenMeetingLinks provisions session links under a configured base URL
// with an unguessable token per appointment. Swappable for a real
// conferencing provider behind the same MeetingLinks interface.
type TokenMeetingLinks struct {
	BaseURL string
}

func (t *TokenMeetingLinks) CreateLink(_ context.Context, appointmentID uuid.UUID) (string, error) {
	if t.BaseURL == "" {
		return "", fmt.Errorf("meeting base URL is not configured")
	}
	return fmt.Sprintf("%s/%s", t.BaseURL, uuid.NewString()), nil
}
