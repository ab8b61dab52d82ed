package queue

import "time"

// Lock — глобальная блокировка очереди. Все последовательности
// Join/Leave/Sweep выполняются строго по одной; обходных путей нет.
// Семафор на буферизованном канале вместо sync.Mutex, чтобы ожидание
// было ограниченным: по таймауту возвращается ErrQueueLocked,
// а не вечное зависание обработчика.
type Lock struct {
	ch chan struct{}
}

func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

// Acquire захватывает блокировку, ожидая не дольше timeout.
func (l *Lock) Acquire(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrQueueLocked
	}
}

// Release освобождает блокировку. Вызывается только после успешного Acquire.
func (l *Lock) Release() {
	<-l.ch
}
