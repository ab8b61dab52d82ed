package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"queue_system/internal/queue"
	"queue_system/internal/response"
	"queue_system/internal/ws"

	"github.com/gin-gonic/gin"
)

const lockRetryBackoff = 100 * time.Millisecond

// QueueManager задаётся из main при старте сервиса.
var QueueManager *queue.Manager

func InitQueue(manager *queue.Manager) {
	QueueManager = manager
}

// JoinQueueHandler обрабатывает запрос на вступление в очередь
// @Summary		Вступление в очередь
// @Description	Ставит пользователя в конец очереди и уведомляет подписчиков
// @Tags			queue
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.JoinResponse	"Успешное вступление с назначенной позицией"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (ALREADY_IN_QUEUE, QUEUE_FULL)"
// @Failure		429	{object}	response.ErrorResponse	"Превышен лимит запросов (RATE_LIMITED)"
// @Failure		503	{object}	response.ErrorResponse	"Очередь занята (QUEUE_LOCKED)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (STORAGE_TIMEOUT, DB_ERROR)"
// @Router			/api/queue/join [post]
func JoinQueueHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	position, err := QueueManager.Join(c.Request.Context(), userID)
	if errors.Is(err, queue.ErrQueueLocked) {
		// Транзиентная ошибка: одна повторная попытка с паузой, прежде чем отдать 503.
		time.Sleep(lockRetryBackoff)
		position, err = QueueManager.Join(c.Request.Context(), userID)
	}
	if err != nil {
		var already *queue.AlreadyQueuedError
		switch {
		case errors.As(err, &already):
			c.JSON(http.StatusBadRequest, gin.H{
				"code":     "ALREADY_IN_QUEUE",
				"message":  "Пользователь уже состоит в очереди",
				"position": already.Position,
			})
		case errors.Is(err, queue.ErrQueueFull):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "QUEUE_FULL",
				Message: "Очередь заполнена, попробуйте позже",
			})
		case errors.Is(err, queue.ErrQueueLocked):
			c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
				Code:    "QUEUE_LOCKED",
				Message: "Очередь занята, повторите запрос",
			})
		case errors.Is(err, queue.ErrStorageTimeout):
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "STORAGE_TIMEOUT",
				Message: "Хранилище не ответило вовремя, попробуйте ещё раз",
			})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка добавления в очередь",
				Details: err.Error(),
			})
		}
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: "user_joined",
		Data: map[string]interface{}{
			"user_id":  userID,
			"position": position,
		},
	})

	c.JSON(http.StatusOK, response.JoinResponse{
		Message:  "Вступление в очередь прошло успешно",
		Position: position,
	})
}

// LeaveQueueHandler обрабатывает запрос на выход из очереди
// @Summary		Выход из очереди
// @Description	Убирает пользователя из очереди, сдвигает стоящих за ним и уведомляет подписчиков
// @Tags			queue
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.LeaveResponse	"Успешный выход с освобождённой позицией"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (NOT_IN_QUEUE)"
// @Failure		429	{object}	response.ErrorResponse	"Превышен лимит запросов (RATE_LIMITED)"
// @Failure		503	{object}	response.ErrorResponse	"Очередь занята (QUEUE_LOCKED)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (STORAGE_TIMEOUT, DB_ERROR)"
// @Router			/api/queue/leave [post]
func LeaveQueueHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	leftPosition, err := QueueManager.Leave(c.Request.Context(), userID)
	if errors.Is(err, queue.ErrQueueLocked) {
		time.Sleep(lockRetryBackoff)
		leftPosition, err = QueueManager.Leave(c.Request.Context(), userID)
	}
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrNotQueued):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "NOT_IN_QUEUE",
				Message: "Активная запись в очереди не найдена",
			})
		case errors.Is(err, queue.ErrQueueLocked):
			c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
				Code:    "QUEUE_LOCKED",
				Message: "Очередь занята, повторите запрос",
			})
		case errors.Is(err, queue.ErrStorageTimeout):
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "STORAGE_TIMEOUT",
				Message: "Хранилище не ответило вовремя, попробуйте ещё раз",
			})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка при выходе из очереди",
				Details: err.Error(),
			})
		}
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: "user_left",
		Data: map[string]interface{}{
			"user_id":       userID,
			"left_position": leftPosition,
		},
	})

	c.JSON(http.StatusOK, response.LeaveResponse{
		Message:      "Вы успешно вышли из очереди",
		LeftPosition: leftPosition,
	})
}

// GetQueueStatusHandler обрабатывает запрос на получение статуса очереди
// @Summary		Статус пользователя в очереди
// @Description	Возвращает позицию пользователя, общее число ожидающих и оценку времени ожидания
// @Tags			queue
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	queue.StatusProjection	"Текущая проекция очереди для пользователя"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (STORAGE_TIMEOUT, DB_ERROR)"
// @Router			/api/queue/status [get]
func GetQueueStatusHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	status, err := QueueManager.Status(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, queue.ErrStorageTimeout) {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "STORAGE_TIMEOUT",
				Message: "Хранилище не ответило вовремя, попробуйте ещё раз",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки статуса очереди",
			Details: fmt.Sprintf("user_id=%d: %v", userID, err),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
