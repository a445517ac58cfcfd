package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventUserLoggedIn, func(context.Context, Event) error {
		t.Fatal("unexpected delivery")
		return nil
	})

	evt := New(EventUserRegistered, Actor{UserID: 7}, time.Unix(1000, 0), UserRegisteredPayload{Username: "alice"})
	require.NoError(t, d.Publish(context.Background(), evt))

	require.Len(t, got, 1)
	assert.Equal(t, evt.ID, got[0].ID)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, int64(7), got[0].Actor.UserID)
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(EventAuthRejected, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventAuthRejected, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), New(EventAuthRejected, Actor{}, time.Now(), nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()

	delivered := false
	d.Subscribe(EventProfileUpdated, func(context.Context, Event) error {
		panic("audit sink gone")
	})
	d.Subscribe(EventProfileUpdated, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), New(EventProfileUpdated, Actor{}, time.Now(), ProfileUpdatedPayload{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit sink gone")
	assert.True(t, delivered)
}
