package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"queue_system/internal/config"
	"queue_system/internal/ledger"
	"queue_system/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const statusGenKey = "queue:status:gen"

// Manager — единственный компонент, меняющий состояние очереди.
// Join/Leave/Sweep выполняются под глобальной блокировкой и в транзакции;
// Status читает без блокировки, допускается слегка устаревший снимок.
type Manager struct {
	db        *gorm.DB
	cache     *redis.Client
	cfg       config.QueueConfig
	lock      *Lock
	estimator WaitEstimator
	kick      chan struct{}
}

func NewManager(db *gorm.DB, cache *redis.Client, cfg config.QueueConfig) *Manager {
	return &Manager{
		db:        db,
		cache:     cache,
		cfg:       cfg,
		lock:      NewLock(),
		estimator: FlatEstimator{MinutesPerPosition: cfg.AverageWaitPerPosition},
		kick:      make(chan struct{}, 1),
	}
}

// SetEstimator подменяет модель оценки времени ожидания.
func (m *Manager) SetEstimator(e WaitEstimator) {
	m.estimator = e
}

// Join ставит пользователя в конец очереди и возвращает назначенную позицию.
func (m *Manager) Join(ctx context.Context, userID uint) (int, error) {
	if err := m.lock.Acquire(m.cfg.LockWaitTimeout); err != nil {
		return 0, err
	}
	defer m.lock.Release()

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
	defer cancel()

	var position int
	err := m.db.WithContext(opCtx).Transaction(func(tx *gorm.DB) error {
		existing, err := ledger.FindActive(tx, userID)
		if err == nil {
			return &AlreadyQueuedError{Position: existing.Position}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		count, err := ledger.CountActive(tx)
		if err != nil {
			return err
		}
		if count >= int64(m.cfg.Capacity) {
			return ErrQueueFull
		}

		maxPosition, err := ledger.MaxActivePosition(tx)
		if err != nil {
			return err
		}

		entry := &models.QueueEntry{
			UserID:   userID,
			Position: maxPosition + 1,
			Status:   models.StatusWaiting,
		}
		if err := ledger.Append(tx, entry); err != nil {
			return err
		}
		position = entry.Position
		return nil
	})
	if err != nil {
		return 0, m.translate("join", userID, err)
	}

	m.invalidateStatusCache()
	return position, nil
}

// Leave выводит пользователя из очереди и возвращает освобождённую позицию.
// Пометка записи и сдвиг позиций идут одной транзакцией; при сбое хранилища
// операция повторяется один раз, дальше дыру закроет свипер.
func (m *Manager) Leave(ctx context.Context, userID uint) (int, error) {
	if err := m.lock.Acquire(m.cfg.LockWaitTimeout); err != nil {
		return 0, err
	}
	defer m.lock.Release()

	vacated, err := m.leaveOnce(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotQueued) {
		log.Printf("Выход из очереди не удался, повторная попытка: user=%d: %v", userID, err)
		vacated, err = m.leaveOnce(ctx, userID)
	}
	if err != nil {
		return 0, m.translate("leave", userID, err)
	}

	m.invalidateStatusCache()
	return vacated, nil
}

func (m *Manager) leaveOnce(ctx context.Context, userID uint) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
	defer cancel()

	var vacated int
	err := m.db.WithContext(opCtx).Transaction(func(tx *gorm.DB) error {
		entry, err := ledger.FindActive(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotQueued
			}
			return err
		}
		vacated = entry.Position
		if err := ledger.MarkTerminal(tx, entry.ID); err != nil {
			return err
		}
		// Все, кто стоял дальше, сдвигаются на одну позицию вперёд.
		return ledger.ShiftPositionsAfter(tx, entry.Position, -1)
	})
	return vacated, err
}

// StatusProjection — проекция очереди для одного пользователя.
type StatusProjection struct {
	InQueue              bool      `json:"in_queue"`
	Position             *int      `json:"position"`
	TotalWaiting         int64     `json:"total_waiting"`
	EstimatedWaitMinutes *int      `json:"estimated_wait_minutes"`
	QueueLoad            string    `json:"queue_load"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Status возвращает положение пользователя и общие показатели очереди.
// Ответ кэшируется в Redis; ключ включает номер поколения, который
// поднимается каждым Join/Leave, поэтому кэш никогда не переживает мутацию.
func (m *Manager) Status(ctx context.Context, userID uint) (*StatusProjection, error) {
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
	defer cancel()

	cacheKey := m.statusCacheKey(opCtx, userID)
	if cacheKey != "" {
		if cached, err := m.cache.Get(opCtx, cacheKey).Result(); err == nil && cached != "" {
			var st StatusProjection
			if err := json.Unmarshal([]byte(cached), &st); err == nil {
				return &st, nil
			}
		}
	}

	st, err := m.statusFromDB(opCtx, userID)
	if err != nil {
		return nil, m.translate("status", userID, err)
	}

	if cacheKey != "" {
		if raw, err := json.Marshal(st); err == nil {
			m.cache.Set(opCtx, cacheKey, raw, m.cfg.StatusCacheTTL)
		}
	}
	return st, nil
}

func (m *Manager) statusFromDB(ctx context.Context, userID uint) (*StatusProjection, error) {
	db := m.db.WithContext(ctx)

	entry, err := ledger.FindActive(db, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	total, err := ledger.CountActive(db)
	if err != nil {
		return nil, err
	}

	st := &StatusProjection{
		InQueue:      entry != nil,
		TotalWaiting: total,
		QueueLoad:    loadLabel(total),
		LastUpdated:  time.Now(),
	}
	if entry != nil {
		if entry.Position <= 0 {
			log.Printf("НАРУШЕНИЕ ИНВАРИАНТА: неположительная позиция %d у пользователя %d, запускаем свипер", entry.Position, entry.UserID)
			m.KickSweep()
		}
		position := entry.Position
		estimate := m.estimator.EstimateMinutes(position)
		st.Position = &position
		st.EstimatedWaitMinutes = &estimate
	}
	return st, nil
}

func loadLabel(total int64) string {
	switch {
	case total > 50:
		return "busy"
	case total > 20:
		return "moderate"
	default:
		return "light"
	}
}

// statusCacheKey читает номер поколения кэша. Пустая строка — Redis
// недоступен, работаем напрямую с базой.
func (m *Manager) statusCacheKey(ctx context.Context, userID uint) string {
	if m.cache == nil {
		return ""
	}
	gen, err := m.cache.Get(ctx, statusGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return ""
	}
	return fmt.Sprintf("queue:status:user:%d:gen:%d", userID, gen)
}

// invalidateStatusCache синхронно поднимает поколение кэша статусов.
// Вызывается до возврата из любой мутации — totalWaiting глобален,
// поэтому инвалидируются проекции всех пользователей разом.
func (m *Manager) invalidateStatusCache() {
	if m.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.cache.Incr(ctx, statusGenKey).Err(); err != nil {
		log.Printf("Не удалось инвалидировать кэш статусов очереди: %v", err)
	}
}

func (m *Manager) translate(op string, userID uint, err error) error {
	var already *AlreadyQueuedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &already),
		errors.Is(err, ErrQueueFull),
		errors.Is(err, ErrNotQueued):
		return err
	case errors.Is(err, ledger.ErrDuplicateActiveEntry):
		log.Printf("НАРУШЕНИЕ ИНВАРИАНТА: дубликат активной записи, user=%d op=%s, запускаем свипер", userID, op)
		m.KickSweep()
		return err
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("Таймаут хранилища: user=%d op=%s: %v", userID, op, err)
		return ErrStorageTimeout
	default:
		log.Printf("Ошибка хранилища: user=%d op=%s: %v", userID, op, err)
		return err
	}
}
