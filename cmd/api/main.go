package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizlive-api/internal/config"
	"github.com/yourusername/quizlive-api/internal/handler"
	"github.com/yourusername/quizlive-api/internal/realtime"
	pgRepo "github.com/yourusername/quizlive-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/quizlive-api/internal/repository/redis"
	"github.com/yourusername/quizlive-api/internal/service"
	"github.com/yourusername/quizlive-api/internal/service/gamesession"
	"github.com/yourusername/quizlive-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	playerRepo := pgRepo.NewPlayerRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to create cache repository: %v", err)
		os.Exit(1)
	}

	// Шина событий сессий поверх Redis Pub/Sub
	bus, err := realtime.NewRedisBus(redisClient)
	if err != nil {
		log.Printf("Failed to create event bus: %v", err)
		os.Exit(1)
	}

	// Игровой конфиг: значения из файла поверх умолчаний
	gameConfig := gamesession.DefaultConfig()
	if cfg.Game.DefaultTimerSec > 0 {
		gameConfig.DefaultTimerSec = cfg.Game.DefaultTimerSec
	}
	if cfg.Game.MaxResponseTimeMs > 0 {
		gameConfig.MaxResponseTimeMs = cfg.Game.MaxResponseTimeMs
	}
	if cfg.Game.RevealDelayMs > 0 {
		gameConfig.RevealDelayMs = cfg.Game.RevealDelayMs
	}
	if cfg.Game.LeaderboardDelayMs > 0 {
		gameConfig.LeaderboardDelayMs = cfg.Game.LeaderboardDelayMs
	}

	deps := &gamesession.Dependencies{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		SessionRepo:  sessionRepo,
		PlayerRepo:   playerRepo,
		AnswerRepo:   answerRepo,
		CacheRepo:    cacheRepo,
		Bus:          bus,
	}

	// Сервисы
	quizService := service.NewQuizService(quizRepo, questionRepo)
	gameService := service.NewGameService(gameConfig, deps)

	// Обработчики
	quizHandler := handler.NewQuizHandler(quizService)
	gameHandler := handler.NewGameHandler(gameService)
	wsHandler := handler.NewWSHandler(bus, sessionRepo)

	// Роутер
	router := gin.Default()
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.GET("/:id", quizHandler.GetQuiz)
			quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", gameHandler.CreateSession)
			sessions.GET("/:id", gameHandler.GetSession)
			sessions.GET("/:id/players", gameHandler.Roster)
			sessions.POST("/:id/start", gameHandler.StartSession)
			sessions.POST("/:id/next", gameHandler.NextQuestion)
			sessions.GET("/:id/leaderboard", gameHandler.Leaderboard)
			sessions.GET("/:id/results", gameHandler.Results)
		}

		players := api.Group("/players")
		{
			players.POST("/join", gameHandler.Join)
			players.POST("/validate-nickname", gameHandler.ValidateNickname)
			players.GET("/:id/view", gameHandler.PlayerView)
			players.POST("/:id/select", gameHandler.SelectOption)
			players.POST("/:id/answer", gameHandler.SubmitAnswer)
		}
	}

	// WebSocket-канал событий сессии
	router.GET("/ws/sessions/:id", wsHandler.Subscribe)

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем таймеры сессий и агентов игроков
	gameService.Shutdown()

	if err := bus.Close(); err != nil {
		log.Printf("Error closing event bus: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
