package ledger

import (
	"errors"
	"time"

	"queue_system/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateActiveEntry — у пользователя уже есть активная запись в очереди.
var ErrDuplicateActiveEntry = errors.New("у пользователя уже есть активная запись в очереди")

// Пакет ledger — единственное место, где формируются запросы к таблице
// queue_entries. Каждая операция атомарна сама по себе; последовательности
// «прочитать-затем-записать» менеджер очереди собирает в транзакцию
// под глобальной блокировкой.

// FindActive возвращает активную запись пользователя или gorm.ErrRecordNotFound.
func FindActive(db *gorm.DB, userID uint) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := db.
		Where("user_id = ? AND status = ?", userID, models.StatusWaiting).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountActive возвращает число ожидающих участников.
func CountActive(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.QueueEntry{}).
		Where("status = ?", models.StatusWaiting).
		Count(&count).Error
	return count, err
}

// MaxActivePosition возвращает максимальную позицию среди ожидающих (0 — очередь пуста).
func MaxActivePosition(db *gorm.DB) (int, error) {
	var maxPosition int
	row := db.Model(&models.QueueEntry{}).
		Where("status = ?", models.StatusWaiting).
		Select("COALESCE(MAX(position),0)").Row()
	if err := row.Scan(&maxPosition); err != nil {
		return 0, err
	}
	return maxPosition, nil
}

// Append добавляет новую запись. Возвращает ErrDuplicateActiveEntry, если
// активная запись пользователя уже существует — страховка инварианта
// «одна активная запись на участника».
func Append(db *gorm.DB, entry *models.QueueEntry) error {
	if _, err := FindActive(db, entry.UserID); err == nil {
		return ErrDuplicateActiveEntry
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(entry).Error
}

// ShiftPositionsAfter сдвигает позиции всех ожидающих с position > threshold
// на delta одним UPDATE (вместо пересохранения строк по одной).
func ShiftPositionsAfter(db *gorm.DB, threshold, delta int) error {
	return db.Model(&models.QueueEntry{}).
		Where("status = ? AND position > ?", models.StatusWaiting, threshold).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

// MarkTerminal переводит запись в терминальный статус left.
func MarkTerminal(db *gorm.DB, entryID uint) error {
	now := time.Now()
	return db.Model(&models.QueueEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"status":  models.StatusLeft,
			"left_at": &now,
		}).Error
}

// UpdatePosition записывает позицию одной записи (используется свипером,
// который пишет только изменившиеся позиции).
func UpdatePosition(db *gorm.DB, entryID uint, position int) error {
	return db.Model(&models.QueueEntry{}).
		Where("id = ?", entryID).
		UpdateColumn("position", position).Error
}

// ListActiveOrderedByCreation возвращает ожидающих в порядке вступления.
// Порядок фиксируется created_at; id добивает совпадающие метки времени.
func ListActiveOrderedByCreation(db *gorm.DB) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := db.
		Where("status = ?", models.StatusWaiting).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
