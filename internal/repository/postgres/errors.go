package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// uniqueViolation — код ошибки PostgreSQL для нарушения уникального индекса
const uniqueViolation = "23505"

// isUniqueViolation распознает unique violation обоих драйверов:
// gorm.io/driver/postgres работает поверх pgx и возвращает *pgconn.PgError,
// миграции через lib/pq — *pq.Error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return true
	}
	return false
}
