package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(TypeBookingCreated, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(TypeBookingDeleted, func(e Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	require.NoError(t, bus.PublishJSON(TypeBookingCreated, map[string]int64{"booking_id": 7}))

	require.Len(t, got, 1)
	assert.Equal(t, TypeBookingCreated, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())

	var payload map[string]int64
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.EqualValues(t, 7, payload["booking_id"])
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(Event{Type: TypeCalendarUpdated})
}

func TestMultipleHandlersAllRun(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(TypeSlotDeleted, func(Event) error {
			calls++
			return nil
		})
	}

	bus.Publish(Event{Type: TypeSlotDeleted})
	assert.Equal(t, 3, calls)
}
