package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Value string `json:"value"`
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	// Arrange
	bus := NewMemoryBus()
	defer bus.Close()

	events, err := bus.Subscribe(context.Background(), "session:abc")
	require.NoError(t, err)

	// Act
	event, err := NewEvent(EventPlayerJoined, testPayload{Value: "hello"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "session:abc", event))

	// Assert
	select {
	case got := <-events:
		assert.Equal(t, EventPlayerJoined, got.Type)
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено")
	}
}

func TestMemoryBus_ChannelIsolation(t *testing.T) {
	// Arrange: подписчики разных сессий не видят чужих событий
	bus := NewMemoryBus()
	defer bus.Close()

	eventsA, err := bus.Subscribe(context.Background(), "session:a")
	require.NoError(t, err)
	eventsB, err := bus.Subscribe(context.Background(), "session:b")
	require.NoError(t, err)

	// Act
	event, err := NewEvent(EventTimerUpdate, testPayload{Value: "tick"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "session:a", event))

	// Assert
	select {
	case <-eventsA:
	case <-time.After(time.Second):
		t.Fatal("подписчик своего канала не получил событие")
	}
	select {
	case <-eventsB:
		t.Fatal("событие утекло в чужой канал")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	// Arrange: broadcast получают все подписчики канала
	bus := NewMemoryBus()
	defer bus.Close()

	first, err := bus.Subscribe(context.Background(), "session:abc")
	require.NoError(t, err)
	second, err := bus.Subscribe(context.Background(), "session:abc")
	require.NoError(t, err)

	// Act
	event, err := NewEvent(EventGameStarted, testPayload{Value: "go"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "session:abc", event))

	// Assert
	for _, events := range []<-chan Event{first, second} {
		select {
		case got := <-events:
			assert.Equal(t, EventGameStarted, got.Type)
		case <-time.After(time.Second):
			t.Fatal("один из подписчиков не получил событие")
		}
	}
}

func TestMemoryBus_UnsubscribeOnContextCancel(t *testing.T) {
	// Arrange
	bus := NewMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx, "session:abc")
	require.NoError(t, err)

	// Act
	cancel()

	// Assert: канал закрывается после отмены контекста
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBus_SlowSubscriberDropsEvents(t *testing.T) {
	// Arrange: подписчик не читает канал вообще
	bus := NewMemoryBus()
	defer bus.Close()

	events, err := bus.Subscribe(context.Background(), "session:abc")
	require.NoError(t, err)

	// Act: публикуем больше, чем вмещает буфер подписчика
	event, err := NewEvent(EventTimerUpdate, testPayload{Value: "tick"})
	require.NoError(t, err)
	for i := 0; i < 150; i++ {
		require.NoError(t, bus.Publish(context.Background(), "session:abc", event))
	}

	// Assert: Publish не блокируется, лишние события отброшены
	assert.Equal(t, 100, len(events))
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	// Arrange
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	// Act
	event, err := NewEvent(EventGameEnded, testPayload{})
	require.NoError(t, err)
	err = bus.Publish(context.Background(), "session:abc", event)

	// Assert
	assert.Error(t, err)
}

func TestSessionChannel(t *testing.T) {
	assert.Equal(t, "session:42", SessionChannel("42"))
}
