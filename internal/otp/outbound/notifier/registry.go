package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// Factory builds a notifier from its settings entry.
type Factory func(setting entity.NotifierSetting) (Notifier, error)

// DefaultFactories returns the built-in notifiers by name.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		NameTwilio:   NewTwilio,
		NameSMSLocal: NewSMSLocal,
		NameSendGrid: NewSendGrid,
		NameSMTP:     NewSMTP,
		NameConsole:  NewConsole,
	}
}

type RegistryConfig struct {
	Retry      RetryConfig
	Instrument instrument.Instrumentation
	// Factories overrides DefaultFactories when set.
	Factories map[string]Factory
}

type snapshot struct {
	chain    *Chain
	renderer *Renderer
}

// Registry owns the live notifier chain. Reload swaps it atomically, so
// in-flight sends finish on the chain they started with.
type Registry struct {
	current    atomic.Pointer[snapshot]
	factories  map[string]Factory
	retry      RetryConfig
	ins        instrument.Instrumentation
	deliveries metric.Int64Counter
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Factories == nil {
		cfg.Factories = DefaultFactories()
	}
	if cfg.Instrument == nil {
		cfg.Instrument = instrument.NewNoop()
	}

	deliveries, err := cfg.Instrument.Meter("otp.outbound.notifier").
		Int64Counter("otp.deliveries", metric.WithDescription("Number of passcode delivery attempts by outcome"))
	if err != nil {
		slog.Error("failed to create otp delivery counter", "error", err)
	}

	return &Registry{
		factories:  cfg.Factories,
		retry:      cfg.Retry,
		ins:        cfg.Instrument,
		deliveries: deliveries,
	}
}

// Reload rebuilds the chain from the enabled notifiers, keeping their order.
// On error the previous chain stays live.
func (r *Registry) Reload(s entity.Settings) error {
	var notifiers []Notifier
	for _, setting := range s.Notifiers {
		if !setting.Enabled {
			continue
		}

		factory, ok := r.factories[setting.Name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNotifier, setting.Name)
		}

		n, err := factory(setting)
		if err != nil {
			return fmt.Errorf("otp: build notifier %s: %w", setting.Name, err)
		}
		notifiers = append(notifiers, n)
	}

	renderer, err := NewRenderer(s.Templates)
	if err != nil {
		return err
	}

	chain := NewChain(r.retry, notifiers...)
	r.current.Store(&snapshot{chain: chain, renderer: renderer})

	slog.Info("notifier chain reloaded", "notifiers", chain.Names())
	return nil
}

// Names lists the live chain in order.
func (r *Registry) Names() []string {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	return snap.chain.Names()
}

// Send renders the message for its purpose and hands it to the live chain.
func (r *Registry) Send(ctx context.Context, in usecase.DeliveryRequest) (_ string, err error) {
	ctx, span := r.ins.Tracer("otp.outbound.notifier").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	snap := r.current.Load()
	if snap == nil {
		return "", errors.Join(usecase.ErrDeliveryFailed, fmt.Errorf("%w: notifier chain is not loaded", ErrDeliveryFailed))
	}

	msg := Message{
		Contact:   in.Contact,
		Kind:      in.Kind,
		Code:      in.Code,
		Purpose:   in.Purpose,
		ExpiresIn: in.ExpiresIn,
	}
	if err := snap.renderer.Render(&msg); err != nil {
		return "", err
	}

	channel, err := snap.chain.Send(ctx, msg)
	r.record(ctx, channel, err)

	if errors.Is(err, ErrDeliveryFailed) {
		return "", errors.Join(usecase.ErrDeliveryFailed, err)
	}
	return channel, err
}

func (r *Registry) record(ctx context.Context, channel string, err error) {
	if r.deliveries == nil {
		return
	}

	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		channel = "none"
	}

	r.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}
