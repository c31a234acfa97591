package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"gigboard/backend/internal/api/handler"
	"gigboard/backend/internal/chathub"
	"gigboard/backend/internal/config"
	"gigboard/backend/internal/models"
	"gigboard/backend/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting GigBoard chat backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	hub := chathub.NewHub(s)
	go hub.Run()

	r := gin.Default()
	r.Use(cors.Default())

	h := handler.NewHandler(hub, s, []byte(cfg.JWTSecret))

	r.GET("/ws", h.ServeWebSocket)

	chats := r.Group("/chats", h.AuthRequired())
	{
		chats.GET("", h.GetChats)
		chats.POST("", h.CreateChat)
		chats.GET("/:chatId", h.GetChat)
		chats.GET("/:chatId/messages", h.GetChatMessages)
		chats.POST("/:chatId/messages", h.SendMessage)
		chats.POST("/:chatId/participants", h.AddParticipant)
		chats.DELETE("/:chatId/leave", h.LeaveChat)
	}

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
