package store

import (
	"context"
	"errors"

	"tradeboard/internal/model"
)

var ErrNotFound = errors.New("store: not found")

type Store interface {
	ReplaceShipments(ctx context.Context, source string, shipments []model.Shipment) error
	CountShipments(ctx context.Context) (int, error)
	ListShipments(ctx context.Context, limit, offset int) ([]model.Shipment, error)
	Companies(ctx context.Context, name string) ([]model.Company, error)
	CompanyStats(ctx context.Context) (model.CompanyStats, error)
	MonthlyVolume(ctx context.Context) ([]model.MonthlyStat, error)
	TopCommodities(ctx context.Context, limit int) ([]model.CommodityStat, error)
	TradingPartners(ctx context.Context, name string, side model.Role, limit int) ([]model.TradingPartner, error)
	CompanyCommodities(ctx context.Context, name string, limit int) ([]model.CommodityWeight, error)
	LastLoad(ctx context.Context) (model.DatasetLoad, error)
	Close() error
}
