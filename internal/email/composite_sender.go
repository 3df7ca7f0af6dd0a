package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// CompositeEmailSender delivers through a primary sender and copies each message to
// any number of observers (file log, capture sinks). Only primary failures are
// returned, so a broken observer never causes a delivery task to be retried.
type CompositeEmailSender struct {
	primary   Sender
	observers []Sender
}

// NewCompositeEmailSender creates a composite around primary.
func NewCompositeEmailSender(primary Sender, observers ...Sender) *CompositeEmailSender {
	cs := &CompositeEmailSender{primary: primary}
	for _, o := range observers {
		cs.AddSender(o)
	}
	return cs
}

// AddSender registers an observer. Nil senders are ignored.
func (cs *CompositeEmailSender) AddSender(sender Sender) {
	if sender != nil {
		cs.observers = append(cs.observers, sender)
	}
}

var errNoPrimarySender = errors.New("composite email sender has no primary sender")

func (cs *CompositeEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if cs.primary == nil {
		return errNoPrimarySender
	}
	for _, o := range cs.observers {
		if err := o.Send(ctx, to, subject, rawMessage); err != nil {
			zap.L().Warn("Email observer failed", zap.Strings("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}
	return cs.primary.Send(ctx, to, subject, rawMessage)
}
