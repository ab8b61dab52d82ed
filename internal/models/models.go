package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Surname      string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

// Статусы записи в очереди. Запись либо ждёт своей очереди,
// либо покинула её (терминальное состояние, обратного перехода нет).
const (
	StatusWaiting = "waiting"
	StatusLeft    = "left"
)

type QueueEntry struct {
	gorm.Model
	UserID   uint       `gorm:"index;not null"`
	User     User       `gorm:"foreignKey:UserID"`
	Position int        `gorm:"index;not null"`                 // Текущая позиция среди ожидающих (1..N, без дыр)
	Status   string     `gorm:"index;not null;default:waiting"` // waiting | left
	LeftAt   *time.Time // Время выхода из очереди (nil — активный участник)
}
