package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/id"
	"fructus/internal/domain/event"
)

type captureNotifier struct {
	got []event.Event
}

func (c *captureNotifier) Notify(_ context.Context, e event.Event) error {
	c.got = append(c.got, e)
	return nil
}

func TestFilteredNotifier_PassesMatching(t *testing.T) {
	sink := &captureNotifier{}
	n, err := NewFilteredNotifier(sink, `event_type.startsWith("Payment")`)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, event.New(event.TypePaymentRequested, id.New(), nil)))
	require.NoError(t, n.Notify(ctx, event.New(event.TypeSaleRecorded, id.New(), nil)))
	require.NoError(t, n.Notify(ctx, event.New(event.TypePaymentApproved, id.New(), nil)))

	require.Len(t, sink.got, 2)
	assert.Equal(t, event.TypePaymentRequested, sink.got[0].Type)
	assert.Equal(t, event.TypePaymentApproved, sink.got[1].Type)
}

func TestFilteredNotifier_AccountVariable(t *testing.T) {
	sink := &captureNotifier{}
	target := id.New()
	n, err := NewFilteredNotifier(sink, `account_id == "`+target.String()+`"`)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, event.New(event.TypeSaleRecorded, target, nil)))
	require.NoError(t, n.Notify(ctx, event.New(event.TypeSaleRecorded, id.New(), nil)))

	require.Len(t, sink.got, 1)
	assert.Equal(t, target, sink.got[0].AccountID)
}

func TestFilteredNotifier_EmptyExpressionPassesAll(t *testing.T) {
	sink := &captureNotifier{}
	n, err := NewFilteredNotifier(sink, "")
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), event.New(event.TypeOrderCreated, id.New(), nil)))
	assert.Len(t, sink.got, 1)
}

func TestFilteredNotifier_RejectsNonBool(t *testing.T) {
	_, err := NewFilteredNotifier(&captureNotifier{}, `event_type`)
	require.Error(t, err)
}

func TestFilteredNotifier_RejectsBadSyntax(t *testing.T) {
	_, err := NewFilteredNotifier(&captureNotifier{}, `event_type ==`)
	require.Error(t, err)
}
