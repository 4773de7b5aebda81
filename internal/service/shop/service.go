// Package shop связывает хранилище витрины с кэшем, метриками и логированием.
package shop

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/webshop/internal/cache"
	"github.com/vladislavdragonenkov/webshop/internal/domain"
	"github.com/vladislavdragonenkov/webshop/internal/metrics"
)

// DefaultOperationTimeout ограничивает одну операцию с хранилищем.
const DefaultOperationTimeout = 5 * time.Second

// Service выполняет операции витрины поверх ShopRepository.
type Service struct {
	repo    domain.ShopRepository
	cache   cache.ReadCache
	metrics *metrics.ShopMetrics
	timeout time.Duration
	logger  *log.Entry
}

// NewService создаёт сервис. readCache и m могут быть nil:
// тогда кэш не используется, а метрики не пишутся.
func NewService(
	repo domain.ShopRepository,
	readCache cache.ReadCache,
	m *metrics.ShopMetrics,
	timeout time.Duration,
	logger *log.Entry,
) *Service {
	if readCache == nil {
		readCache = cache.Noop{}
	}
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	if logger == nil {
		logger = log.New().WithField("component", "shop")
	}
	return &Service{
		repo:    repo,
		cache:   readCache,
		metrics: m,
		timeout: timeout,
		logger:  logger,
	}
}

// ListArticles возвращает все товары.
func (s *Service) ListArticles(ctx context.Context) ([]domain.Article, error) {
	return cachedList(ctx, s, cache.KeyArticles, "articles", s.repo.ListArticles)
}

// ListClients возвращает клиентов со сводками заказов.
func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	return cachedList(ctx, s, cache.KeyClients, "clients", s.repo.ListClients)
}

// ListOrderReports возвращает отчёт по заказам.
func (s *Service) ListOrderReports(ctx context.Context) ([]domain.OrderReport, error) {
	return cachedList(ctx, s, cache.KeyOrders, "orders", s.repo.ListOrderReports)
}

// PlaceOrder проверяет запрос и оформляет заказ в одной транзакции хранилища.
func (s *Service) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.PlacementStarted()
	}

	entry := s.logger.WithFields(log.Fields{
		"client_id": req.ClientID,
		"lines":     len(req.Lines),
	})

	placed, err := s.placeOrder(ctx, req)

	if s.metrics != nil {
		s.metrics.PlacementFinished(err, len(req.Lines), req.TotalAmount(), time.Since(start))
	}

	if err != nil {
		kind := domain.KindOf(err)
		entry = entry.WithError(err).WithField("error_kind", kind)
		if kind == domain.ErrorKindInfrastructure {
			entry.Error("order placement failed")
		} else {
			entry.Info("order placement rejected")
		}
		return domain.PlacedOrder{}, err
	}

	entry.WithField("order_id", placed.ID).Info("order placed")

	s.invalidateReadModels(ctx, placed.ID)

	return placed, nil
}

// invalidateReadModels сбрасывает кэш списков после коммита.
// Отмена запроса клиентом не должна оставить в кэше устаревшие списки.
func (s *Service) invalidateReadModels(ctx context.Context, orderID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.cache.Invalidate(ctx, cache.ReadModelKeys()...); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to invalidate read cache")
	}
}

func (s *Service) placeOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	if err := req.Validate(); err != nil {
		return domain.PlacedOrder{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.repo.PlaceOrder(ctx, req)
}

// cachedList читает список из кэша, а при промахе из хранилища.
// Ошибки кэша не прерывают запрос.
func cachedList[T any](
	ctx context.Context,
	s *Service,
	key, resource string,
	load func(context.Context) ([]T, error),
) ([]T, error) {
	var cached []T
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("read cache lookup failed")
	}
	if found {
		s.recordRead(resource, metrics.SourceCache)
		return cached, nil
	}

	// Поколение берётся до загрузки: если заказ оформят во время чтения,
	// устаревший список не будет записан.
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.logger.WithError(genErr).Warn("read cache generation lookup failed")
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := load(loadCtx)
	if err != nil {
		s.logger.WithError(err).WithField("resource", resource).Error("list request failed")
		return nil, err
	}
	s.recordRead(resource, metrics.SourceStorage)

	if genErr != nil {
		return items, nil
	}
	stored, err := s.cache.SetIfGeneration(ctx, key, items, gen)
	switch {
	case err != nil:
		s.logger.WithError(err).WithField("key", key).Warn("read cache store failed")
	case !stored:
		s.logger.WithField("key", key).Debug("read cache invalidated during load, result not stored")
	}

	return items, nil
}

func (s *Service) recordRead(resource, source string) {
	if s.metrics != nil {
		s.metrics.RecordRead(resource, source)
	}
}
