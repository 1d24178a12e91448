package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_HandlerErrorsAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	d.Subscribe(EventCreditsSpent, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventCreditsSpent, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventVoucherIssued, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventCreditsSpent, "ada@gmail.com", CreditsPayload{Balance: 1}))
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestMaskKey(t *testing.T) {
	require.Equal(t, "PROM****", MaskKey("PROMO-100"))
	require.Equal(t, "****", MaskKey("ab"))
}

func TestDispatcher_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	reached := false
	d.Subscribe(EventVoucherRedeemed, func(context.Context, Event) error {
		panic("bad subscriber")
	})
	d.Subscribe(EventVoucherRedeemed, nil)
	d.Subscribe(EventVoucherRedeemed, func(context.Context, Event) error {
		reached = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventVoucherRedeemed, "ada@gmail.com", nil)))
	require.True(t, reached)
	require.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}
