package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"queue_system/internal/config"
	"queue_system/internal/handlers"
	"queue_system/internal/ledger"
	"queue_system/internal/models"
	"queue_system/internal/queue"
	"queue_system/internal/ratelimit"
	"queue_system/internal/storage"
	"queue_system/internal/tasks"
	"queue_system/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func AuthMiddlewareTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.Request.Header.Get("X-Test-UserID")
		if userIDStr == "" {
			c.Set("userID", uint(1))
		} else {
			id, err := strconv.Atoi(userIDStr)
			if err != nil {
				c.Set("userID", uint(1))
			} else {
				c.Set("userID", uint(id))
			}
		}
		c.Next()
	}
}

var hubOnce sync.Once

func setupTestServer(t *testing.T, capacity int) (*httptest.Server, *queue.Manager) {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		if err := godotenv.Load("../.env"); err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectTestingDatabase()
	storage.DB.Exec("TRUNCATE TABLE users, queue_entries RESTART IDENTITY CASCADE;")

	if err := storage.DB.AutoMigrate(&models.User{}, &models.QueueEntry{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}
	if err := storage.EnsureQueueIndexes(); err != nil {
		log.Fatal("Ошибка создания индексов очереди... ", err.Error())
	}

	storage.InitRedis()

	cfg := config.LoadQueueConfig()
	cfg.Capacity = capacity
	manager := queue.NewManager(storage.DB, storage.RedisClient, cfg)
	handlers.InitQueue(manager)

	hubOnce.Do(func() {
		go ws.HubInstance.Run()
	})

	r := gin.Default()

	queueGroup := r.Group("/api/queue", AuthMiddlewareTest())
	{
		queueGroup.GET("/status", handlers.GetQueueStatusHandler)
		queueGroup.GET("/ws", ws.QueueWebSocketHandler)

		mutations := queueGroup.Group("", ratelimit.Middleware(storage.RedisClient, 1000))
		{
			mutations.POST("/join", handlers.JoinQueueHandler)
			mutations.POST("/leave", handlers.LeaveQueueHandler)
		}
	}

	return httptest.NewServer(r), manager
}

func createTestUser(t *testing.T, name string) uint {
	email := fmt.Sprintf("%s_%d@example.com", name, time.Now().UnixNano())
	user := models.User{Name: name, Surname: "Тестов", Email: email, PasswordHash: "hashed123"}
	err := storage.DB.Create(&user).Error
	assert.NoError(t, err, "Ошибка создания тестового пользователя")
	return user.ID
}

func doQueueRequest(t *testing.T, ts *httptest.Server, method, path string, userID uint) (int, map[string]interface{}) {
	req, _ := http.NewRequest(method, ts.URL+path, nil)
	req.Header.Set("X-Test-UserID", fmt.Sprintf("%d", userID))
	res, err := http.DefaultClient.Do(req)
	assert.NoError(t, err, "Ошибка запроса "+path)
	defer res.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(res.Body).Decode(&body)
	return res.StatusCode, body
}

func TestQueueFlow(t *testing.T) {
	ts, _ := setupTestServer(t, 100)
	defer ts.Close()

	userA := createTestUser(t, "Иван")
	userB := createTestUser(t, "Петр")

	// 1. Пустая очередь: A получает позицию 1, B — позицию 2.
	code, body := doQueueRequest(t, ts, "POST", "/api/queue/join", userA)
	assert.Equal(t, http.StatusOK, code, "Пользователь A не смог встать в очередь")
	assert.Equal(t, float64(1), body["position"], "A должен получить позицию 1")

	code, body = doQueueRequest(t, ts, "POST", "/api/queue/join", userB)
	assert.Equal(t, http.StatusOK, code, "Пользователь B не смог встать в очередь")
	assert.Equal(t, float64(2), body["position"], "B должен получить позицию 2")

	// 2. Статус A: в очереди, позиция 1, всего ожидающих 2.
	code, body = doQueueRequest(t, ts, "GET", "/api/queue/status", userA)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["in_queue"])
	assert.Equal(t, float64(1), body["position"])
	assert.Equal(t, float64(2), body["total_waiting"])
	assert.NotNil(t, body["estimated_wait_minutes"], "Оценка ожидания должна присутствовать")

	// 3. Повторный join A — ALREADY_IN_QUEUE с текущей позицией, запись одна.
	code, body = doQueueRequest(t, ts, "POST", "/api/queue/join", userA)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ALREADY_IN_QUEUE", body["code"])
	assert.Equal(t, float64(1), body["position"], "В ответе должна быть текущая позиция")

	var activeA int64
	storage.DB.Model(&models.QueueEntry{}).
		Where("user_id = ? AND status = ?", userA, models.StatusWaiting).
		Count(&activeA)
	assert.Equal(t, int64(1), activeA, "У A должна остаться ровно одна активная запись")

	// 4. Выход A: освобождается позиция 1, B сдвигается на первую.
	code, body = doQueueRequest(t, ts, "POST", "/api/queue/leave", userA)
	assert.Equal(t, http.StatusOK, code, "Пользователь A не смог выйти из очереди")
	assert.Equal(t, float64(1), body["left_position"])

	code, body = doQueueRequest(t, ts, "GET", "/api/queue/status", userB)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["position"], "B должен сдвинуться на позицию 1")
	assert.Equal(t, float64(1), body["total_waiting"])

	// 5. Статус A после выхода: не в очереди.
	code, body = doQueueRequest(t, ts, "GET", "/api/queue/status", userA)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["in_queue"])
	assert.Nil(t, body["position"])
}

func TestLeaveNotQueued(t *testing.T) {
	ts, _ := setupTestServer(t, 100)
	defer ts.Close()

	stranger := createTestUser(t, "Посторонний")

	code, body := doQueueRequest(t, ts, "POST", "/api/queue/leave", stranger)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "NOT_IN_QUEUE", body["code"])

	var total int64
	storage.DB.Model(&models.QueueEntry{}).Count(&total)
	assert.Equal(t, int64(0), total, "Записи не должны появляться при ошибочном leave")
}

func TestQueueCapacity(t *testing.T) {
	ts, _ := setupTestServer(t, 5)
	defer ts.Close()

	users := make([]uint, 6)
	for i := range users {
		users[i] = createTestUser(t, fmt.Sprintf("Участник%d", i))
	}

	for i := 0; i < 5; i++ {
		code, _ := doQueueRequest(t, ts, "POST", "/api/queue/join", users[i])
		assert.Equal(t, http.StatusOK, code, "Очередь ещё не заполнена")
	}

	// Шестой сверх вместимости получает QUEUE_FULL, состояние не меняется.
	code, body := doQueueRequest(t, ts, "POST", "/api/queue/join", users[5])
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "QUEUE_FULL", body["code"])

	var active int64
	storage.DB.Model(&models.QueueEntry{}).
		Where("status = ?", models.StatusWaiting).
		Count(&active)
	assert.Equal(t, int64(5), active, "Активных записей должно остаться ровно 5")
}

func TestLeaveLastEntry(t *testing.T) {
	ts, _ := setupTestServer(t, 100)
	defer ts.Close()

	users := make([]uint, 3)
	for i := range users {
		users[i] = createTestUser(t, fmt.Sprintf("Хвостовой%d", i))
		code, _ := doQueueRequest(t, ts, "POST", "/api/queue/join", users[i])
		assert.Equal(t, http.StatusOK, code)
	}

	// Уходит последний (позиция N): сдвигать некого, остальные не трогаются.
	code, body := doQueueRequest(t, ts, "POST", "/api/queue/leave", users[2])
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["left_position"])

	entries, err := ledger.ListActiveOrderedByCreation(storage.DB)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Position, "Позиции оставшихся не должны меняться")
		assert.Equal(t, users[i], entry.UserID)
	}

	// Выходят оставшиеся; после единственного участника активное множество пусто.
	code, _ = doQueueRequest(t, ts, "POST", "/api/queue/leave", users[1])
	assert.Equal(t, http.StatusOK, code)

	code, body = doQueueRequest(t, ts, "POST", "/api/queue/leave", users[0])
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["left_position"])

	count, err := ledger.CountActive(storage.DB)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count, "Очередь должна опустеть")
}

func TestConcurrentJoins(t *testing.T) {
	ts, manager := setupTestServer(t, 100)
	defer ts.Close()

	const workers = 8
	users := make([]uint, workers)
	for i := range users {
		users[i] = createTestUser(t, fmt.Sprintf("Гонщик%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			req, _ := http.NewRequest("POST", ts.URL+"/api/queue/join", nil)
			req.Header.Set("X-Test-UserID", fmt.Sprintf("%d", userID))
			res, err := http.DefaultClient.Do(req)
			if err == nil {
				res.Body.Close()
			}
		}(users[i])
	}
	wg.Wait()

	// Позиции должны быть ровно {1..N}: без дублей, дыр и нулей.
	entries, err := ledger.ListActiveOrderedByCreation(storage.DB)
	assert.NoError(t, err)
	assert.Equal(t, workers, len(entries), "Все участники должны попасть в очередь")

	seen := make(map[int]bool)
	for _, entry := range entries {
		assert.False(t, seen[entry.Position], "Позиция %d назначена дважды", entry.Position)
		assert.GreaterOrEqual(t, entry.Position, 1)
		assert.LessOrEqual(t, entry.Position, workers)
		seen[entry.Position] = true
	}

	assert.NoError(t, manager.CheckInvariants(context.Background()), "Инварианты после гонки join-ов")
}

func TestSweeperRepairsAndIsIdempotent(t *testing.T) {
	ts, manager := setupTestServer(t, 100)
	defer ts.Close()

	users := make([]uint, 3)
	for i := range users {
		users[i] = createTestUser(t, fmt.Sprintf("Ожидающий%d", i))
		code, _ := doQueueRequest(t, ts, "POST", "/api/queue/join", users[i])
		assert.Equal(t, http.StatusOK, code)
	}

	// Симулируем дрейф: у второго участника портим позицию.
	err := storage.DB.Model(&models.QueueEntry{}).
		Where("user_id = ?", users[1]).
		UpdateColumn("position", 42).Error
	assert.NoError(t, err)

	assert.Error(t, manager.CheckInvariants(context.Background()), "Проверка должна увидеть дрейф")

	// Свипер восстанавливает плотную нумерацию по порядку вступления.
	rewritten, err := manager.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Greater(t, rewritten, 0, "Дрейф должен привести к перезаписи позиций")

	entries, err := ledger.ListActiveOrderedByCreation(storage.DB)
	assert.NoError(t, err)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Position, "После свипа позиции идут 1..N по порядку вступления")
	}
	assert.NoError(t, manager.CheckInvariants(context.Background()))

	// Повторный запуск без промежуточных Join/Leave ничего не меняет.
	before := snapshotPositions(t)
	rewritten, err = manager.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, rewritten, "Повторный свип не должен писать в базу")
	after := snapshotPositions(t)
	assert.Equal(t, before, after, "Повторный свип должен быть no-op")
}

func snapshotPositions(t *testing.T) map[uint]int {
	entries, err := ledger.ListActiveOrderedByCreation(storage.DB)
	assert.NoError(t, err)
	snapshot := make(map[uint]int, len(entries))
	for _, entry := range entries {
		snapshot[entry.ID] = entry.Position
	}
	return snapshot
}

func TestQueueWebSocketEvents(t *testing.T) {
	ts, _ := setupTestServer(t, 100)
	defer ts.Close()

	userA := createTestUser(t, "Слушатель")

	wsURL := "ws" + ts.URL[4:] + "/api/queue/ws"
	dialer := websocket.Dialer{}
	wsHeaders := http.Header{}
	wsHeaders.Set("X-Test-UserID", fmt.Sprintf("%d", userA))
	wsConn, _, err := dialer.Dial(wsURL, wsHeaders)
	assert.NoError(t, err, "Ошибка подключения к WS")
	defer wsConn.Close()

	code, _ := doQueueRequest(t, ts, "POST", "/api/queue/join", userA)
	assert.Equal(t, http.StatusOK, code)

	wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, wsMessage, err := wsConn.ReadMessage()
	assert.NoError(t, err, "Ошибка чтения WS сообщения")

	var wsMsg map[string]interface{}
	err = json.Unmarshal(wsMessage, &wsMsg)
	assert.NoError(t, err, "Ошибка разбора WS сообщения")
	assert.Equal(t, "user_joined", wsMsg["event_type"])

	code, _ = doQueueRequest(t, ts, "POST", "/api/queue/leave", userA)
	assert.Equal(t, http.StatusOK, code)

	wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, wsMessage, err = wsConn.ReadMessage()
	assert.NoError(t, err, "Ошибка чтения WS сообщения (user_left)")
	err = json.Unmarshal(wsMessage, &wsMsg)
	assert.NoError(t, err)
	assert.Equal(t, "user_left", wsMsg["event_type"])
}

func TestWebSocketRenumberEvent(t *testing.T) {
	ts, manager := setupTestServer(t, 100)
	defer ts.Close()

	userA := createTestUser(t, "Первый")
	userB := createTestUser(t, "Второй")

	wsURL := "ws" + ts.URL[4:] + "/api/queue/ws"
	dialer := websocket.Dialer{}
	wsConn, _, err := dialer.Dial(wsURL, nil)
	assert.NoError(t, err, "Ошибка подключения к WS")
	defer wsConn.Close()

	for _, userID := range []uint{userA, userB} {
		code, _ := doQueueRequest(t, ts, "POST", "/api/queue/join", userID)
		assert.Equal(t, http.StatusOK, code)

		wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err = wsConn.ReadMessage()
		assert.NoError(t, err, "Ошибка чтения WS сообщения (user_joined)")
	}

	// Портим нумерацию и запускаем свипер тем же путём, что планировщик.
	err = storage.DB.Model(&models.QueueEntry{}).
		Where("user_id = ?", userB).
		UpdateColumn("position", 42).Error
	assert.NoError(t, err)

	tasks.RunSweep(manager, "тест")

	wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, wsMessage, err := wsConn.ReadMessage()
	assert.NoError(t, err, "Ошибка чтения WS сообщения (positions_renumbered)")

	var wsMsg map[string]interface{}
	err = json.Unmarshal(wsMessage, &wsMsg)
	assert.NoError(t, err)
	assert.Equal(t, "positions_renumbered", wsMsg["event_type"])

	data, ok := wsMsg["data"].(map[string]interface{})
	assert.True(t, ok, "Событие должно нести данные о пересчёте")
	assert.Equal(t, float64(1), data["rewritten"], "Перезаписана только испорченная позиция")
}
