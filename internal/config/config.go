package config

import (
	"os"
	"strconv"
	"time"
)

// QueueConfig — настройки очереди, читаются из переменных окружения
// (сам .env подгружается в main через godotenv).
type QueueConfig struct {
	Capacity               int           // Максимум активных участников
	SweepIntervalMinutes   int           // Период фонового пересчёта позиций
	AverageWaitPerPosition int           // Минут ожидания на одну позицию
	JoinLeaveRateLimit     int           // Запросов join/leave на пользователя в минуту
	LockWaitTimeout        time.Duration // Сколько ждать глобальную блокировку
	StorageTimeout         time.Duration // Таймаут операций с базой
	StatusCacheTTL         time.Duration // TTL кэша статуса в Redis
}

func LoadQueueConfig() QueueConfig {
	return QueueConfig{
		Capacity:               getEnvInt("QUEUE_CAPACITY", 100),
		SweepIntervalMinutes:   getEnvInt("SWEEP_INTERVAL_MINUTES", 5),
		AverageWaitPerPosition: getEnvInt("AVERAGE_WAIT_PER_POSITION_MINUTES", 5),
		JoinLeaveRateLimit:     getEnvInt("JOIN_LEAVE_RATE_LIMIT", 10),
		LockWaitTimeout:        time.Duration(getEnvInt("LOCK_WAIT_TIMEOUT_MS", 2000)) * time.Millisecond,
		StorageTimeout:         time.Duration(getEnvInt("STORAGE_TIMEOUT_MS", 3000)) * time.Millisecond,
		StatusCacheTTL:         time.Duration(getEnvInt("STATUS_CACHE_TTL_SECONDS", 30)) * time.Second,
	}
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}
