package tasks

import (
	"context"
	"log"
	"time"

	"queue_system/internal/queue"
	"queue_system/internal/ws"

	"github.com/robfig/cron/v3"
)

// StartSweeper запускает cron-задачу пересчёта позиций и горутину,
// слушающую сигналы немедленного запуска (после нарушения инварианта
// свипер отрабатывает сразу, не дожидаясь тика по расписанию).
func StartSweeper(manager *queue.Manager, intervalMinutes int) *cron.Cron {
	c := cron.New()

	// cron.Every вместо строкового spec: интервал, не делящий 60,
	// в записи "0 */N * * * *" срабатывал бы неравномерно.
	c.Schedule(cron.Every(time.Duration(intervalMinutes)*time.Minute), cron.FuncJob(func() {
		RunSweep(manager, "по расписанию")
	}))

	go func() {
		for range manager.KickChan() {
			RunSweep(manager, "по сигналу")
		}
	}()

	c.Start()
	log.Println("Cron-свипер очереди запущен, интервал:", intervalMinutes, "мин.")
	return c
}

// RunSweep выполняет пересчёт позиций и рассылает подписчикам событие
// positions_renumbered, если нумерация менялась.
func RunSweep(manager *queue.Manager, reason string) {
	rewritten, err := manager.Sweep(context.Background())
	if err != nil {
		log.Printf("Запуск свипера (%s) не удался: %v", reason, err)
		return
	}

	if rewritten > 0 {
		ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
			EventType: "positions_renumbered",
			Data: map[string]interface{}{
				"rewritten": rewritten,
			},
		})
	}
}
