package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Хранит presence-набор участников сессии и снимок текущего вопроса
// (resync-путь для игроков, переподключившихся между broadcast'ами).
// Кеш не авторитетен: при его недоступности чтения падают обратно
// на хранилище.
type CacheRepository interface {
	Delete(key string) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// SAdd добавляет элемент в множество (участники сессии)
	SAdd(key string, member string) error
	// SMembers возвращает элементы множества
	SMembers(key string) ([]string, error)
}
