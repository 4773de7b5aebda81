package cache

import "time"

// Ключи read-model кэша списков.
const (
	KeyArticles = "webshop:read:articles"
	KeyClients  = "webshop:read:clients"
	KeyOrders   = "webshop:read:orders"

	// KeyGeneration хранит счётчик инвалидаций read-model кэша.
	KeyGeneration = "webshop:read:generation"
)

// TTLReadModel ограничивает время жизни закэшированных списков.
const TTLReadModel = 30 * time.Second

// ReadModelKeys возвращает все ключи, которые устаревают после оформления заказа.
func ReadModelKeys() []string {
	return []string{KeyArticles, KeyClients, KeyOrders}
}
