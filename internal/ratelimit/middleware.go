package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"queue_system/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Middleware ограничивает число join/leave запросов на пользователя в минуту.
// Счётчик живёт в Redis; если Redis недоступен, запрос пропускается —
// лимитер не должен ронять саму очередь.
func Middleware(client *redis.Client, limitPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limitPerMinute <= 0 {
			c.Next()
			return
		}

		userID := c.GetUint("userID")
		key := fmt.Sprintf("queue:ratelimit:%d", userID)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, time.Minute)
		}

		if count > int64(limitPerMinute) {
			c.JSON(http.StatusTooManyRequests, response.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "Слишком много запросов к очереди, попробуйте через минуту",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
