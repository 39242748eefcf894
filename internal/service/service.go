package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/orderflow/internal/config"
	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/notify"
	"github.com/nurpe/orderflow/internal/repository"
	"github.com/nurpe/orderflow/internal/token"
)

// Deps is shared by every workflow service.
type Deps struct {
	Store    *repository.Store
	Tokens   *token.Service
	Engine   *lifecycle.Engine
	Notifier notify.Notifier
	Links    notify.Links
	Orders   config.OrdersConfig
	Log      zerolog.Logger
}

func (d *Deps) now() time.Time {
	return d.Engine.Now()
}

// notify hands the deep link for tok to the notifier. Failures are logged
// and never undo the committed change.
func (d *Deps) notify(ctx context.Context, tok *model.Token, recipient, text string) string {
	link := d.Links.For(*tok)
	if d.Notifier == nil {
		return link
	}
	err := d.Notifier.Notify(ctx, notify.Message{
		DocumentType: tok.DocumentType,
		DocumentID:   tok.DocumentID,
		Recipient:    recipient,
		Link:         link,
		Text:         text,
	})
	if err != nil {
		d.Log.Warn().Err(err).
			Str("document_type", string(tok.DocumentType)).
			Str("document_id", tok.DocumentID.String()).
			Msg("notification failed")
	}
	return link
}

func requireStaff(p model.Principal) error {
	if p.UserID == uuid.Nil {
		return ErrPermissionDenied
	}
	switch p.Role {
	case model.UserRoleAdmin, model.UserRoleManager, model.UserRoleWarehouse:
		return nil
	default:
		return ErrPermissionDenied
	}
}

// requireManager guards commercial operations: pricing, confirmation,
// purchasing and shipment planning.
func requireManager(p model.Principal) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	if !(p.IsAdmin() || p.IsManager()) {
		return ErrPermissionDenied
	}
	return nil
}

func guestActor(name string) model.Actor {
	return model.Actor{Kind: model.ActorGuest, Name: name}
}
