package queue

import (
	"context"
	"errors"
	"log"

	"queue_system/internal/ledger"
)

// ErrInvariantViolated — активное множество противоречит инвариантам очереди.
var ErrInvariantViolated = errors.New("нарушен инвариант позиций очереди")

// CheckInvariants сверяет активное множество с инвариантами: не больше одной
// активной записи на пользователя, позиции ровно {1..N} без дыр и дублей.
// При нарушении пишет в лог и немедленно запускает свипер.
func (m *Manager) CheckInvariants(ctx context.Context) error {
	entries, err := ledger.ListActiveOrderedByCreation(m.db.WithContext(ctx))
	if err != nil {
		return m.translate("check_invariants", 0, err)
	}

	seenUsers := make(map[uint]bool, len(entries))
	seenPositions := make(map[int]bool, len(entries))
	violated := false

	for _, entry := range entries {
		if seenUsers[entry.UserID] {
			log.Printf("НАРУШЕНИЕ ИНВАРИАНТА: пользователь %d имеет несколько активных записей", entry.UserID)
			violated = true
		}
		seenUsers[entry.UserID] = true

		if entry.Position < 1 || entry.Position > len(entries) || seenPositions[entry.Position] {
			log.Printf("НАРУШЕНИЕ ИНВАРИАНТА: недопустимая позиция %d (запись %d, активных %d)",
				entry.Position, entry.ID, len(entries))
			violated = true
			continue
		}
		seenPositions[entry.Position] = true
	}

	if violated {
		m.KickSweep()
		return ErrInvariantViolated
	}
	return nil
}
