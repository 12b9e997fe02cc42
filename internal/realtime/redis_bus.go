package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBus реализует Bus поверх Redis Pub/Sub.
// Используется, когда хост и игроки обслуживаются разными процессами.
type RedisBus struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc

	// Хранит активные подписки (channel -> *redis.PubSub)
	subscriptions sync.Map
	mu            sync.Mutex
}

// NewRedisBus создает новую шину событий, используя существующий UniversalClient.
func NewRedisBus(client redis.UniversalClient) (*RedisBus, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisBus")
	}

	// Проверяем соединение клиента перед использованием
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("provided redis client failed ping check: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Publish публикует событие в указанный канал
func (b *RedisBus) Publish(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	cmd := b.client.Publish(ctx, channel, data)
	if err := cmd.Err(); err != nil {
		log.Printf("[RedisBus] Ошибка публикации в канал '%s': %v", channel, err)
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на указанный канал Redis
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log.Printf("[RedisBus] Подписка на канал '%s'", channel)

	pubsub := b.client.Subscribe(b.ctx, channel)

	// Ждем подтверждения подписки
	if _, err := pubsub.Receive(b.ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	b.subscriptions.Store(pubsub, channel)

	eventCh := make(chan Event, 100) // Буферизированный канал

	// Горутина читает сообщения из Redis и пересылает подписчику.
	// Медленный подписчик теряет сообщения — доставка best-effort.
	go func() {
		defer func() {
			b.subscriptions.Delete(pubsub)
			pubsub.Close()
			close(eventCh)
			log.Printf("[RedisBus] Подписка на канал '%s' закрыта", channel)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("[RedisBus] Ошибка десериализации события из канала '%s': %v", channel, err)
					continue
				}
				select {
				case eventCh <- event:
				default:
					log.Printf("[RedisBus] Канал подписчика '%s' переполнен, событие %s отброшено", channel, event.Type)
				}
			case <-ctx.Done():
				return
			case <-b.ctx.Done():
				return
			}
		}
	}()

	return eventCh, nil
}

// Close закрывает все активные подписки и останавливает шину
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancel()

	var lastErr error
	b.subscriptions.Range(func(key, value interface{}) bool {
		pubsub, ok := key.(*redis.PubSub)
		if ok {
			if err := pubsub.Close(); err != nil {
				lastErr = err
			}
		}
		return true
	})

	log.Println("[RedisBus] Шина остановлена")
	return lastErr
}
