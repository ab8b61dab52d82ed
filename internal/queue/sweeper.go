package queue

import (
	"context"
	"log"

	"queue_system/internal/ledger"

	"gorm.io/gorm"
)

// Sweep — фоновый пересчёт позиций: активные записи в порядке вступления
// получают позиции 1..N. Пишутся только изменившиеся строки, поэтому
// повторный запуск без промежуточных Join/Leave ничего не трогает.
// Возвращает число перезаписанных строк — планировщик уведомляет
// подписчиков, только если нумерация действительно менялась.
// Держит ту же глобальную блокировку, что Join и Leave; если блокировку
// взять не удалось, запуск пропускается — прогоны не накапливаются.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if err := m.lock.Acquire(m.cfg.LockWaitTimeout); err != nil {
		return 0, err
	}
	defer m.lock.Release()

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
	defer cancel()

	rewritten := 0
	err := m.db.WithContext(opCtx).Transaction(func(tx *gorm.DB) error {
		entries, err := ledger.ListActiveOrderedByCreation(tx)
		if err != nil {
			return err
		}
		for i := range entries {
			want := i + 1
			if entries[i].Position == want {
				continue
			}
			if err := ledger.UpdatePosition(tx, entries[i].ID, want); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	if err != nil {
		return 0, m.translate("sweep", 0, err)
	}

	if rewritten > 0 {
		log.Printf("Свипер перенумеровал %d записей очереди", rewritten)
		m.invalidateStatusCache()
	}
	return rewritten, nil
}

// KickSweep просит свипер отработать немедленно, не дожидаясь тика по
// расписанию. Неблокирующий: если запуск уже запрошен, повторный сигнал не нужен.
func (m *Manager) KickSweep() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// KickChan — канал сигналов немедленного запуска для планировщика.
func (m *Manager) KickChan() <-chan struct{} {
	return m.kick
}
