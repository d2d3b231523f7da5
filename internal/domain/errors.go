package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrOrderNotFound возвращается, если заказа с таким ID нет в истории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists сигнализирует о повторном добавлении заказа с тем же ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrInvalidOrder — заказ не прошёл структурную проверку (id, date, items, total).
	ErrInvalidOrder = errors.New("invalid order data")
	// ErrInvalidStatus — неизвестное значение статуса заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidStatusTransition — переход статуса запрещён (например, delivered → processing).
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
	// ErrAmountMismatch — сумма заказа не совпадает с суммой позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")
	// ErrItemQtyInvalid — количество товара в позиции меньше единицы.
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// ErrItemPriceInvalid — отрицательная цена позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// ErrItemsRequired — заказ без позиций.
	ErrItemsRequired = errors.New("order must contain at least one item")

	// ErrPersistence — ошибка сериализации/чтения/записи локального хранилища.
	ErrPersistence = errors.New("persistence failure")
	// ErrBlobNotFound возвращается хранилищем, если ключ отсутствует.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrProductNotFound — каталог не знает такого товара.
	ErrProductNotFound = errors.New("product not found")
	// ErrCatalogUnavailable — каталог недоступен или вернул неожиданный ответ.
	ErrCatalogUnavailable = errors.New("product catalog unavailable")

	// ErrCheckoutInProgress — предыдущая отправка заказа ещё не завершилась.
	ErrCheckoutInProgress = errors.New("checkout submission already in progress")
	// ErrSessionRequired — оформление заказа требует входа в аккаунт.
	ErrSessionRequired = errors.New("login required to checkout")

	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken — аккаунт с таким email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrProfileIncomplete — при регистрации не заполнены обязательные поля.
	ErrProfileIncomplete = errors.New("name, email and password are required")
	// ErrUnauthenticated — токен отсутствует, просрочен или не принадлежит текущей сессии.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// IsNotFound проверяет, относится ли ошибка к промаху поиска заказа или товара.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrProductNotFound)
}

// IsPersistence проверяет, является ли ошибка сбоем локального хранилища.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// ValidationErrors собирает ошибки по полям формы оформления заказа.
// Ошибки исправляются пользователем и не логируются как системные.
type ValidationErrors struct {
	Fields map[string]string `json:"errors"`
}

// NewValidationErrors создаёт пустой набор ошибок.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Fields: make(map[string]string)}
}

// Add регистрирует ошибку поля; первая ошибка поля сохраняется.
func (v *ValidationErrors) Add(field, message string) {
	if _, exists := v.Fields[field]; exists {
		return
	}
	v.Fields[field] = message
}

// Set перезаписывает ошибку поля.
func (v *ValidationErrors) Set(field, message string) {
	v.Fields[field] = message
}

// Empty сообщает, что ошибок нет.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Has проверяет наличие ошибки для поля.
func (v *ValidationErrors) Has(field string) bool {
	if v == nil {
		return false
	}
	_, ok := v.Fields[field]
	return ok
}

func (v *ValidationErrors) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SubmissionError описывает неожиданный сбой при фиксации заказа.
// Message предназначено для пользователя, Err хранит первопричину.
type SubmissionError struct {
	Message string
	Err     error
}

// DefaultSubmissionMessage содержит сообщение, предлагающее повторить попытку.
const DefaultSubmissionMessage = "Failed to process your order. Please try again."

// NewSubmissionError оборачивает причину в SubmissionError со стандартным сообщением.
func NewSubmissionError(err error) *SubmissionError {
	return &SubmissionError{Message: DefaultSubmissionMessage, Err: err}
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
