package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"github.com/shandysiswandi/passcode/internal/pkg/messaging"
	"github.com/shandysiswandi/passcode/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishChallengeIssued(ctx context.Context, msg usecase.ChallengeIssuedEvent) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "PublishChallengeIssued")
	defer span.End()

	err := m.publish(ctx, event.ChallengeIssuedDestination, msg.Contact, event.ChallengeIssuedMessage{
		ChallengeID: msg.ChallengeID,
		Reference:   msg.Reference,
		Contact:     msg.Contact,
		ContactKind: msg.Kind.String(),
		Purpose:     msg.Purpose,
		Channel:     msg.Channel,
		Demo:        msg.Demo,
		ExpiresAt:   msg.ExpiresAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishChallengeVerified(ctx context.Context, msg usecase.ChallengeVerifiedEvent) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "PublishChallengeVerified")
	defer span.End()

	err := m.publish(ctx, event.ChallengeVerifiedDestination, msg.Contact, event.ChallengeVerifiedMessage{
		ChallengeID: msg.ChallengeID,
		Reference:   msg.Reference,
		Contact:     msg.Contact,
		ContactKind: msg.Kind.String(),
		Purpose:     msg.Purpose,
		Demo:        msg.Demo,
		VerifiedAt:  msg.VerifiedAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// publish keys the message by contact so one contact's events stay ordered
// on partitioned brokers.
func (m *Messaging) publish(ctx context.Context, destination, contact string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(contact),
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	})
	return err
}
