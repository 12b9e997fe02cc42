package realtime

import (
	"context"
)

// Bus определяет интерфейс шины событий сессии.
// Доставка at-most-once, без упорядочивания и без подтверждений:
// отправка fire-and-forget, медленные подписчики теряют сообщения.
// Каждый клиент обязан уметь пересинхронизироваться чтением из хранилища.
type Bus interface {
	// Publish публикует событие в указанный канал
	Publish(ctx context.Context, channel string, event Event) error

	// Subscribe подписывается на канал и возвращает канал событий.
	// Канал закрывается при отмене ctx или остановке шины.
	Subscribe(ctx context.Context, channel string) (<-chan Event, error)

	// Close закрывает все подписки и освобождает ресурсы
	Close() error
}
