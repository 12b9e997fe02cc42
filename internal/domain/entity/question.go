package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос в викторине.
// Order — плотный 0-based порядок внутри викторины, уникальный для quiz_id.
type Question struct {
	ID            string      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID        string      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Text          string      `gorm:"size:500;not null" json:"question_text"`
	Options       StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswer string      `gorm:"size:255;not null" json:"correct_answer"`
	Explanation   string      `gorm:"size:1000;not null;default:''" json:"explanation"`
	Order         int         `gorm:"column:\"order\";not null" json:"order"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedAnswer string) bool {
	return selectedAnswer == q.CorrectAnswer
}

// IsValidOption проверяет, что выбранный вариант входит в список вариантов
func (q *Question) IsValidOption(selectedAnswer string) bool {
	for _, opt := range q.Options {
		if opt == selectedAnswer {
			return true
		}
	}
	return false
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}
