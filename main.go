package main

import (
	"fmt"
	"log"
	"os"

	_ "queue_system/docs"
	"queue_system/internal/auth"
	"queue_system/internal/config"
	"queue_system/internal/handlers"
	"queue_system/internal/models"
	"queue_system/internal/queue"
	"queue_system/internal/ratelimit"
	"queue_system/internal/storage"
	"queue_system/internal/tasks"
	"queue_system/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Онлайн очередь ожидания
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		if err := godotenv.Load(); err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(&models.User{}, &models.QueueEntry{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}
	if err := storage.EnsureQueueIndexes(); err != nil {
		log.Fatal("Ошибка создания индексов очереди... ", err.Error())
	}

	storage.InitRedis()

	cfg := config.LoadQueueConfig()
	manager := queue.NewManager(storage.DB, storage.RedisClient, cfg)
	handlers.InitQueue(manager)

	tasks.StartSweeper(manager, cfg.SweepIntervalMinutes)

	go ws.HubInstance.Run()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	queueGroup := r.Group("/api/queue", auth.AuthMiddleware())
	{
		queueGroup.GET("/status", handlers.GetQueueStatusHandler)
		queueGroup.GET("/ws", ws.QueueWebSocketHandler)

		mutations := queueGroup.Group("", ratelimit.Middleware(storage.RedisClient, cfg.JoinLeaveRateLimit))
		{
			mutations.POST("/join", handlers.JoinQueueHandler)
			mutations.POST("/leave", handlers.LeaveQueueHandler)
		}
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
