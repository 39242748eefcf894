// Package notify builds deep links for token holders and hands them to the
// delivery channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/orderflow/internal/model"
)

type Message struct {
	DocumentType model.DocumentType
	DocumentID   uuid.UUID
	Recipient    string
	Link         string
	Text         string
}

// Notifier delivers a message to a phone or chat channel. Delivery is best
// effort; callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

type Links struct {
	origin string
}

func NewLinks(origin string) Links {
	return Links{origin: strings.TrimRight(origin, "/")}
}

// For renders {origin}/{path}/{token}.
func (l Links) For(token model.Token) string {
	return fmt.Sprintf("%s/%s/%s", l.origin, token.Capability.LinkPath(), token.ID)
}

// LogNotifier writes messages to the log. It stands in for the chat/SMS
// gateway, which lives outside this service.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.log.Info().
		Str("document_type", string(msg.DocumentType)).
		Str("document_id", msg.DocumentID.String()).
		Str("recipient", msg.Recipient).
		Str("link", msg.Link).
		Msg(msg.Text)
	return nil
}
