package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
)

// MemoryBus реализует Bus в памяти одного процесса.
// Используется в одиночном режиме работы и в тестах.
// Семантика доставки та же, что у RedisBus: fire-and-forget,
// переполненный подписчик теряет сообщения.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	closed      bool
}

// NewMemoryBus создает новую внутрипроцессную шину событий
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[string][]chan Event),
	}
}

// Publish рассылает событие всем подписчикам канала
func (b *MemoryBus) Publish(ctx context.Context, channel string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("memory bus is closed")
	}

	for _, sub := range b.subscribers[channel] {
		select {
		case sub <- event:
		default:
			// Подписчик не успевает — событие отброшено
			log.Printf("[MemoryBus] Подписчик канала '%s' переполнен, событие %s отброшено", channel, event.Type)
		}
	}
	return nil
}

// Subscribe подписывается на канал
func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("memory bus is closed")
	}

	eventCh := make(chan Event, 100)
	b.subscribers[channel] = append(b.subscribers[channel], eventCh)

	// Отписка по отмене контекста
	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, eventCh)
	}()

	return eventCh, nil
}

// unsubscribe удаляет подписчика и закрывает его канал
func (b *MemoryBus) unsubscribe(channel string, eventCh chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[channel]
	for i, sub := range subs {
		if sub == eventCh {
			b.subscribers[channel] = append(subs[:i], subs[i+1:]...)
			close(eventCh)
			break
		}
	}
	if len(b.subscribers[channel]) == 0 {
		delete(b.subscribers, channel)
	}
}

// Close закрывает шину и все каналы подписчиков
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for channel, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
