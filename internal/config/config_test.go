package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadQueueConfigDefaults(t *testing.T) {
	cfg := LoadQueueConfig()

	assert.Equal(t, 100, cfg.Capacity)
	assert.Equal(t, 5, cfg.SweepIntervalMinutes)
	assert.Equal(t, 5, cfg.AverageWaitPerPosition)
	assert.Equal(t, 10, cfg.JoinLeaveRateLimit)
	assert.Equal(t, 2*time.Second, cfg.LockWaitTimeout)
	assert.Equal(t, 3*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 30*time.Second, cfg.StatusCacheTTL)
}

func TestLoadQueueConfigFromEnv(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "7")
	t.Setenv("SWEEP_INTERVAL_MINUTES", "2")
	t.Setenv("AVERAGE_WAIT_PER_POSITION_MINUTES", "3")
	t.Setenv("LOCK_WAIT_TIMEOUT_MS", "500")

	cfg := LoadQueueConfig()

	assert.Equal(t, 7, cfg.Capacity)
	assert.Equal(t, 2, cfg.SweepIntervalMinutes)
	assert.Equal(t, 3, cfg.AverageWaitPerPosition)
	assert.Equal(t, 500*time.Millisecond, cfg.LockWaitTimeout)
}

func TestLoadQueueConfigIgnoresGarbage(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "не число")
	t.Setenv("SWEEP_INTERVAL_MINUTES", "-1")

	cfg := LoadQueueConfig()

	// Мусорные и неположительные значения откатываются к значениям по умолчанию.
	assert.Equal(t, 100, cfg.Capacity)
	assert.Equal(t, 5, cfg.SweepIntervalMinutes)
}
