package gamesession

import "math"

// CalculateScore — чистая функция подсчета очков за ответ.
// Неправильный ответ всегда дает 0. Правильный ответ дает от 1000
// (мгновенный ответ) до 100 (ответ на границе бюджета времени),
// линейно убывая по времени ответа. responseTimeMs ограничивается
// диапазоном [0, maxTimeMs].
//
// Эта функция — единственный источник очков для лидерборда, поэтому
// все клиенты считают очки одинаково и локально.
func CalculateScore(isCorrect bool, responseTimeMs, maxTimeMs int64) int {
	if !isCorrect {
		return 0
	}
	if maxTimeMs <= 0 {
		maxTimeMs = DefaultMaxResponseTimeMs
	}

	// Ограничиваем время ответа бюджетом
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	if responseTimeMs > maxTimeMs {
		responseTimeMs = maxTimeMs
	}

	timeRatio := 1 - float64(responseTimeMs)/float64(maxTimeMs)
	return int(math.Round(100 + timeRatio*900))
}
