// Package cache хранит сериализованные списки витрины между запросами.
package cache

import "context"

// ReadCache хранит JSON-представления списков.
//
// Запись условная: читатель берёт Generation до загрузки из хранилища и
// передаёт его в SetIfGeneration. Invalidate увеличивает поколение, поэтому
// список, загруженный до оформления заказа, не попадёт в кэш после инвалидации.
type ReadCache interface {
	// Get заполняет dst и возвращает true, если ключ найден.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Generation(ctx context.Context) (int64, error)
	// SetIfGeneration сохраняет value, только если поколение всё ещё равно gen.
	SetIfGeneration(ctx context.Context, key string, value any, gen int64) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

// Noop используется, когда Redis не настроен: всегда промах.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Generation(context.Context) (int64, error) { return 0, nil }

// SetIfGeneration принимает запись, но ничего не сохраняет.
func (Noop) SetIfGeneration(context.Context, string, any, int64) (bool, error) { return true, nil }

func (Noop) Invalidate(context.Context, ...string) error { return nil }

var _ ReadCache = Noop{}
