package gamesession

import (
	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

// QuestionPayload — вопрос в broadcast-событии.
// Несет correct_answer и explanation: правильность и очки каждый клиент
// считает локально, сверка с хранилищем происходит через лидерборд.
type QuestionPayload struct {
	ID             string   `json:"id"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	Explanation    string   `json:"explanation"`
	Number         int      `json:"number"`
	TotalQuestions int      `json:"total_questions"`
}

// QuestionEventPayload — полезная нагрузка game_started и next_question
type QuestionEventPayload struct {
	Question QuestionPayload `json:"question"`
	TimeLeft int             `json:"time_left"`
}

// TimerUpdatePayload — полезная нагрузка timer_update.
// Хост — единственные авторитетные часы; локальный отсчет клиентов
// между обновлениями — косметическая интерполяция.
type TimerUpdatePayload struct {
	TimeLeft int `json:"time_left"`
}

// PlayerJoinedPayload — полезная нагрузка player_joined
type PlayerJoinedPayload struct {
	Player entity.Player `json:"player"`
}

// PlayerAnsweredPayload — полезная нагрузка player_answered
// (живой счетчик ответов на стороне хоста)
type PlayerAnsweredPayload struct {
	PlayerID       string `json:"player_id"`
	QuestionID     string `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Score          int    `json:"score"`
	// AnsweredCount — сколько всего ответов уже есть на этот вопрос
	AnsweredCount int64 `json:"answered_count"`
}

// LeaderboardEntry — строка таблицы лидеров
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	Nickname   string `json:"nickname"`
	TotalScore int    `json:"total_score"`
}

// RevealAnswerPayload — полезная нагрузка reveal_answer
type RevealAnswerPayload struct {
	QuestionID    string `json:"question_id"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	// AnswerCounts — распределение ответов по вариантам
	AnswerCounts map[string]int     `json:"answer_counts"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
}

// GameEndedPayload — полезная нагрузка game_ended.
// Финальные места клиенты обязаны перечитать из хранилища:
// broadcast может быть потерян или устареть.
type GameEndedPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// newQuestionPayload собирает payload вопроса для broadcast
func newQuestionPayload(q *entity.Question, number, total int) QuestionPayload {
	return QuestionPayload{
		ID:             q.ID,
		QuestionText:   q.Text,
		Options:        q.Options,
		CorrectAnswer:  q.CorrectAnswer,
		Explanation:    q.Explanation,
		Number:         number,
		TotalQuestions: total,
	}
}
