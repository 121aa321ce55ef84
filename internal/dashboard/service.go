// Package dashboard turns the shipment store into the company rollups the
// dashboard API serves. The dataset is loaded lazily on first use and treated
// as immutable afterwards.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"tradeboard/internal/model"
	"tradeboard/internal/providers"
	"tradeboard/internal/store"
)

const (
	DefaultPageSize       = 100
	DefaultTopCommodities = 5
	detailLimit           = 3
)

type Options struct {
	// ReloadOnStart fetches from the provider even when the store already holds shipments.
	ReloadOnStart bool
	// DetailCacheSize bounds the company detail cache; zero disables it.
	DetailCacheSize int
	TopCommodities  int
	Logger          *logrus.Logger
	Metrics         LoadObserver
}

// LoadObserver is told about each dataset load attempt.
type LoadObserver interface {
	ObserveLoad(source string, records int, err error)
}

type Service struct {
	store    store.Store
	provider providers.Provider
	options  Options
	log      *logrus.Logger

	mu     sync.Mutex
	loaded bool
	// generation counts successful loads; detail cache writes from an older
	// generation are dropped.
	generation uint64
	details    *lru.Cache[string, model.CompanyDetail]
}

func New(st store.Store, provider providers.Provider, opts Options) (*Service, error) {
	if st == nil {
		return nil, errors.New("dashboard: store is required")
	}
	if opts.TopCommodities <= 0 {
		opts.TopCommodities = DefaultTopCommodities
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	service := &Service{
		store:    st,
		provider: provider,
		options:  opts,
		log:      logger,
	}
	if opts.DetailCacheSize > 0 {
		cache, err := lru.New[string, model.CompanyDetail](opts.DetailCacheSize)
		if err != nil {
			return nil, fmt.Errorf("dashboard: creating detail cache: %w", err)
		}
		service.details = cache
	}
	return service, nil
}

// EnsureLoaded loads the dataset once. A failed load is not remembered, so the
// next caller retries.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	if !s.options.ReloadOnStart || s.provider == nil {
		count, err := s.store.CountShipments(ctx)
		if err != nil {
			return err
		}
		if count > 0 || s.provider == nil {
			s.log.WithField("shipments", count).Info("using stored dataset")
			s.loaded = true
			return nil
		}
	}

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// Reload replaces the stored dataset with a fresh fetch from the provider.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return errors.New("dashboard: no provider configured")
	}
	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *Service) loadLocked(ctx context.Context) error {
	source := s.provider.Name()
	shipments, err := s.provider.FetchShipments(ctx)
	if err == nil {
		err = s.store.ReplaceShipments(ctx, source, shipments)
	}
	if s.options.Metrics != nil {
		s.options.Metrics.ObserveLoad(source, len(shipments), err)
	}
	if err != nil {
		s.log.WithError(err).WithField("source", source).Error("dataset load failed")
		return fmt.Errorf("dashboard: loading dataset from %s: %w", source, err)
	}

	s.generation++
	if s.details != nil {
		s.details.Purge()
	}
	s.log.WithFields(logrus.Fields{
		"source":    source,
		"shipments": len(shipments),
	}).Info("dataset loaded")
	return nil
}

func (s *Service) Shipments(ctx context.Context, limit, offset int) (model.ShipmentPage, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return model.ShipmentPage{}, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.store.CountShipments(ctx)
	if err != nil {
		return model.ShipmentPage{}, err
	}
	data, err := s.store.ListShipments(ctx, limit, offset)
	if err != nil {
		return model.ShipmentPage{}, err
	}
	return model.ShipmentPage{Data: data, Total: total}, nil
}

func (s *Service) Companies(ctx context.Context) ([]model.Company, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.store.Companies(ctx, "")
}

// Company returns the highest-volume entity registered under name.
func (s *Service) Company(ctx context.Context, name string) (model.Company, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return model.Company{}, err
	}
	if name == "" {
		return model.Company{}, store.ErrNotFound
	}
	companies, err := s.store.Companies(ctx, name)
	if err != nil {
		return model.Company{}, err
	}
	if len(companies) == 0 {
		return model.Company{}, store.ErrNotFound
	}
	return companies[0], nil
}

func (s *Service) CompanyStats(ctx context.Context) (model.CompanyStats, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return model.CompanyStats{}, err
	}
	return s.store.CompanyStats(ctx)
}

func (s *Service) MonthlyVolume(ctx context.Context) ([]model.MonthlyStat, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.store.MonthlyVolume(ctx)
}

func (s *Service) TopCommodities(ctx context.Context, limit int) ([]model.CommodityStat, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.options.TopCommodities
	}
	return s.store.TopCommodities(ctx, limit)
}

func (s *Service) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	companyStats, err := s.CompanyStats(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	monthly, err := s.MonthlyVolume(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	commodities, err := s.TopCommodities(ctx, s.options.TopCommodities)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return model.DashboardStats{
		CompanyStats:   companyStats,
		MonthlyVolume:  monthly,
		TopCommodities: commodities,
	}, nil
}

func (s *Service) CompanyDetail(ctx context.Context, name string) (model.CompanyDetail, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return model.CompanyDetail{}, err
	}
	generation := s.currentGeneration()
	if s.details != nil {
		if detail, ok := s.details.Get(name); ok {
			return detail, nil
		}
	}
	company, err := s.Company(ctx, name)
	if err != nil {
		return model.CompanyDetail{}, err
	}

	var partners []model.TradingPartner
	if company.Role == model.RoleImporter || company.Role == model.RoleBoth {
		partners, err = s.store.TradingPartners(ctx, name, model.RoleImporter, detailLimit)
		if err != nil {
			return model.CompanyDetail{}, err
		}
	}
	if company.Role == model.RoleExporter || company.Role == model.RoleBoth {
		exporterPartners, err := s.store.TradingPartners(ctx, name, model.RoleExporter, detailLimit)
		if err != nil {
			return model.CompanyDetail{}, err
		}
		if company.Role == model.RoleBoth {
			partners = mergePartners(partners, exporterPartners, detailLimit)
		} else {
			partners = exporterPartners
		}
	}

	commodities, err := s.store.CompanyCommodities(ctx, name, detailLimit)
	if err != nil {
		return model.CompanyDetail{}, err
	}

	detail := model.CompanyDetail{
		Company:            company,
		TopTradingPartners: nonNilPartners(partners),
		TopCommodities:     commodities,
	}
	s.cacheDetail(generation, name, detail)
	return detail, nil
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// cacheDetail stores detail unless a reload happened since it was built.
func (s *Service) cacheDetail(generation uint64, name string, detail model.CompanyDetail) {
	if s.details == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	s.details.Add(name, detail)
}

func (s *Service) LastLoad(ctx context.Context) (model.DatasetLoad, error) {
	return s.store.LastLoad(ctx)
}

func (s *Service) ShipmentCount(ctx context.Context) (int, error) {
	return s.store.CountShipments(ctx)
}

// mergePartners combines both partner lists of a company that imports and
// exports. Entries sharing a partner name are summed and keep the first country
// seen; equal counts keep insertion order.
func mergePartners(importerSide, exporterSide []model.TradingPartner, limit int) []model.TradingPartner {
	merged := make([]model.TradingPartner, 0, len(importerSide)+len(exporterSide))
	index := make(map[string]int, len(importerSide)+len(exporterSide))
	for _, list := range [][]model.TradingPartner{importerSide, exporterSide} {
		for _, partner := range list {
			if i, ok := index[partner.Name]; ok {
				merged[i].Shipments += partner.Shipments
				continue
			}
			index[partner.Name] = len(merged)
			merged = append(merged, partner)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Shipments > merged[j].Shipments
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func nonNilPartners(partners []model.TradingPartner) []model.TradingPartner {
	if partners == nil {
		return []model.TradingPartner{}
	}
	return partners
}
