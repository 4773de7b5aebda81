package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrClientNotFound — клиент с указанным идентификатором не существует.
	ErrClientNotFound = errors.New("client not found")
	// ErrArticleNotFound — товар с указанным идентификатором не существует.
	ErrArticleNotFound = errors.New("article not found")
	// ErrInsufficientStock — на складе меньше единиц товара, чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidParameter — параметр запроса отсутствует или некорректен.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrStorageUnavailable — хранилище не инициализировано или недоступно.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrOutboxPublish — ошибка при публикации или пометке сообщения outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ErrorKind классифицирует ошибки для логов и метрик.
type ErrorKind string

const (
	ErrorKindNone           ErrorKind = "none"
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindBusinessRule   ErrorKind = "business_rule"
	ErrorKindInfrastructure ErrorKind = "infrastructure"
)

// ArticleError привязывает ошибку к конкретному товару.
type ArticleError struct {
	ArticleID int64
	Err       error
}

func (e *ArticleError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInsufficientStock):
		return fmt.Sprintf("Not enough items of article #%d available", e.ArticleID)
	case errors.Is(e.Err, ErrArticleNotFound):
		return fmt.Sprintf("Article #%d not found", e.ArticleID)
	default:
		return fmt.Sprintf("article #%d: %v", e.ArticleID, e.Err)
	}
}

func (e *ArticleError) Unwrap() error {
	return e.Err
}

// NewInsufficientStockError возвращает бизнес-ошибку нехватки товара.
func NewInsufficientStockError(articleID int64) error {
	return &ArticleError{ArticleID: articleID, Err: ErrInsufficientStock}
}

// NewArticleNotFoundError возвращает ошибку отсутствующего товара.
func NewArticleNotFoundError(articleID int64) error {
	return &ArticleError{ArticleID: articleID, Err: ErrArticleNotFound}
}

// NewClientNotFoundError возвращает ошибку отсутствующего клиента.
func NewClientNotFoundError(clientID int64) error {
	return fmt.Errorf("%w: #%d", ErrClientNotFound, clientID)
}

// ParameterError описывает некорректный или отсутствующий параметр запроса.
type ParameterError struct {
	Name   string
	Value  string
	Reason string
}

func (e *ParameterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %q (%q): %s", e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// IsNotFound проверяет, что ошибка относится к отсутствующему клиенту или товару.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) || errors.Is(err, ErrArticleNotFound)
}

// IsValidation проверяет, что ошибка вызвана некорректными параметрами.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsBusinessRule проверяет, что ошибка — нарушение бизнес-правила (нехватка стока).
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// KindOf возвращает класс ошибки; всё неизвестное считается инфраструктурной ошибкой.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case IsNotFound(err):
		return ErrorKindNotFound
	case IsValidation(err):
		return ErrorKindValidation
	case IsBusinessRule(err):
		return ErrorKindBusinessRule
	default:
		return ErrorKindInfrastructure
	}
}
