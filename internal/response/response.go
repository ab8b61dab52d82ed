package response

// SuccessResponse представляет успешный ответ API
type SuccessResponse struct {
	Message string `json:"message" example:"Операция успешно выполнена"`
}

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: QUEUE_FULL
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Очередь заполнена
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	// example: текущая позиция: 3
	Details string `json:"details,omitempty"`
}

// JoinResponse — ответ на успешное вступление в очередь
type JoinResponse struct {
	Message  string `json:"message" example:"Вступление в очередь прошло успешно"`
	Position int    `json:"position" example:"1"`
}

// LeaveResponse — ответ на успешный выход из очереди
type LeaveResponse struct {
	Message      string `json:"message" example:"Вы успешно вышли из очереди"`
	LeftPosition int    `json:"left_position" example:"1"`
}

// TokenResponse представляет ответ с токенами авторизации
type TokenResponse struct {
	// JWT токен для доступа к защищенным эндпоинтам
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// JWT токен для обновления access токена
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}
