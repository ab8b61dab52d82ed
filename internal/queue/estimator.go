package queue

// WaitEstimator оценивает время ожидания по позиции в очереди.
// Вынесен в интерфейс: исторической модели нет, и когда она появится,
// достаточно подменить реализацию.
type WaitEstimator interface {
	EstimateMinutes(position int) int
}

// FlatEstimator — фиксированное число минут на одну позицию.
type FlatEstimator struct {
	MinutesPerPosition int
}

func (e FlatEstimator) EstimateMinutes(position int) int {
	return position * e.MinutesPerPosition
}
