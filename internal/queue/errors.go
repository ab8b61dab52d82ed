package queue

import (
	"errors"
	"fmt"
)

// Ошибки менеджера очереди. Валидационные (AlreadyQueuedError, ErrQueueFull,
// ErrNotQueued) возвращаются пользователю как есть и не ретраятся.
// ErrQueueLocked — транзиентная, вызывающая сторона может повторить запрос.
// ErrStorageTimeout — сбой хранилища, частичные записи откатываются транзакцией.
var (
	ErrQueueFull      = errors.New("очередь заполнена")
	ErrNotQueued      = errors.New("активная запись в очереди не найдена")
	ErrQueueLocked    = errors.New("очередь занята другой операцией")
	ErrStorageTimeout = errors.New("превышено время ожидания хранилища")
)

// AlreadyQueuedError — пользователь уже стоит в очереди; несёт текущую позицию.
type AlreadyQueuedError struct {
	Position int
}

func (e *AlreadyQueuedError) Error() string {
	return fmt.Sprintf("пользователь уже состоит в очереди, позиция %d", e.Position)
}
