package sqlite

import (
	"context"
	"fmt"

	"tradeboard/internal/model"
)

// Importer and exporter roles are grouped separately on (name, country, website)
// and merged with a full outer join, so an entity seen on both sides becomes a
// single row with role "both". A non-empty filter restricts each side to that
// name before grouping.
const companiesQuery = `
	WITH importer_stats AS (
		SELECT
			importer_name AS name,
			importer_country AS country,
			importer_website AS website,
			COUNT(*) AS shipments,
			CAST(SUM(weight_metric_tonnes * 1000) AS REAL) AS weight
		FROM shipments
		WHERE importer_name <> '' AND (? = '' OR importer_name = ?)
		GROUP BY importer_name, importer_country, importer_website
	),
	exporter_stats AS (
		SELECT
			exporter_name AS name,
			exporter_country AS country,
			exporter_website AS website,
			COUNT(*) AS shipments,
			CAST(SUM(weight_metric_tonnes * 1000) AS REAL) AS weight
		FROM shipments
		WHERE exporter_name <> '' AND (? = '' OR exporter_name = ?)
		GROUP BY exporter_name, exporter_country, exporter_website
	)
	SELECT
		COALESCE(i.name, e.name) AS name,
		COALESCE(i.country, e.country) AS country,
		COALESCE(i.website, e.website) AS website,
		CASE
			WHEN i.name IS NOT NULL AND e.name IS NOT NULL THEN 'both'
			WHEN i.name IS NOT NULL THEN 'importer'
			ELSE 'exporter'
		END AS role,
		COALESCE(i.shipments, 0) + COALESCE(e.shipments, 0) AS total_shipments,
		CAST(COALESCE(i.weight, 0) + COALESCE(e.weight, 0) AS REAL) AS total_weight
	FROM importer_stats i
	FULL OUTER JOIN exporter_stats e
		ON i.name = e.name AND i.country = e.country AND i.website = e.website
	ORDER BY total_shipments DESC, name, country, website
`

const importerPartnersQuery = `
	SELECT
		exporter_name AS name,
		exporter_country AS country,
		COUNT(*) AS shipments
	FROM shipments
	WHERE importer_name = ? AND exporter_name <> ''
	GROUP BY exporter_name, exporter_country
	ORDER BY shipments DESC, name, country
	LIMIT ?
`

const exporterPartnersQuery = `
	SELECT
		importer_name AS name,
		importer_country AS country,
		COUNT(*) AS shipments
	FROM shipments
	WHERE exporter_name = ? AND importer_name <> ''
	GROUP BY importer_name, importer_country
	ORDER BY shipments DESC, name, country
	LIMIT ?
`

func (s *Store) CountShipments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM shipments`); err != nil {
		return 0, fmt.Errorf("sqlite: counting shipments: %w", err)
	}
	return count, nil
}

func (s *Store) ListShipments(ctx context.Context, limit, offset int) ([]model.Shipment, error) {
	var rows []dbShipment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			id, importer_name, importer_website, importer_country,
			exporter_name, exporter_website, exporter_country,
			shipment_date, commodity_name, industry_sector, weight_metric_tonnes
		FROM shipments
		ORDER BY shipment_date DESC, row_id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing shipments: %w", err)
	}

	shipments := make([]model.Shipment, 0, len(rows))
	for _, row := range rows {
		shipments = append(shipments, row.toModel())
	}
	return shipments, nil
}

func (s *Store) Companies(ctx context.Context, name string) ([]model.Company, error) {
	var rows []dbCompany
	if err := s.db.SelectContext(ctx, &rows, companiesQuery, name, name, name, name); err != nil {
		return nil, fmt.Errorf("sqlite: aggregating companies: %w", err)
	}

	companies := make([]model.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, row.toModel())
	}
	return companies, nil
}

func (s *Store) CompanyStats(ctx context.Context) (model.CompanyStats, error) {
	var row struct {
		TotalImporters int `db:"total_importers"`
		TotalExporters int `db:"total_exporters"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT
			COUNT(DISTINCT NULLIF(importer_name, '')) AS total_importers,
			COUNT(DISTINCT NULLIF(exporter_name, '')) AS total_exporters
		FROM shipments
	`)
	if err != nil {
		return model.CompanyStats{}, fmt.Errorf("sqlite: counting companies: %w", err)
	}
	return model.CompanyStats{
		TotalImporters: row.TotalImporters,
		TotalExporters: row.TotalExporters,
	}, nil
}

func (s *Store) MonthlyVolume(ctx context.Context) ([]model.MonthlyStat, error) {
	var rows []dbMonthlyVolume
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			strftime('%Y-%m', shipment_date) AS month_key,
			CAST(SUM(weight_metric_tonnes * 1000) AS REAL) AS kg
		FROM shipments
		WHERE strftime('%Y-%m', shipment_date) IS NOT NULL
		GROUP BY month_key
		ORDER BY month_key
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating monthly volume: %w", err)
	}

	stats := make([]model.MonthlyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.MonthlyStat{Month: monthLabel(row.MonthKey), KG: row.KG})
	}
	return stats, nil
}

func (s *Store) TopCommodities(ctx context.Context, limit int) ([]model.CommodityStat, error) {
	var rows []dbCommodity
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			commodity_name AS name,
			CAST(SUM(weight_metric_tonnes * 1000) AS REAL) AS kg
		FROM shipments
		GROUP BY commodity_name
		ORDER BY kg DESC, name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating commodities: %w", err)
	}

	stats := make([]model.CommodityStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.CommodityStat{Commodity: row.Name, KG: row.KG})
	}
	return stats, nil
}

// TradingPartners returns the counterparties of name when it acts in the given
// side: exporters it bought from for RoleImporter, importers it sold to for
// RoleExporter.
func (s *Store) TradingPartners(ctx context.Context, name string, side model.Role, limit int) ([]model.TradingPartner, error) {
	var query string
	switch side {
	case model.RoleImporter:
		query = importerPartnersQuery
	case model.RoleExporter:
		query = exporterPartnersQuery
	default:
		return nil, fmt.Errorf("sqlite: unsupported partner side %q", side)
	}

	var rows []dbPartner
	if err := s.db.SelectContext(ctx, &rows, query, name, limit); err != nil {
		return nil, fmt.Errorf("sqlite: aggregating %s partners: %w", side, err)
	}

	partners := make([]model.TradingPartner, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, model.TradingPartner{
			Name:      row.Name,
			Country:   row.Country,
			Shipments: row.Shipments,
		})
	}
	return partners, nil
}

func (s *Store) CompanyCommodities(ctx context.Context, name string, limit int) ([]model.CommodityWeight, error) {
	var rows []dbCommodity
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			commodity_name AS name,
			CAST(SUM(weight_metric_tonnes * 1000) AS REAL) AS kg
		FROM shipments
		WHERE importer_name = ? OR exporter_name = ?
		GROUP BY commodity_name
		ORDER BY kg DESC, name
		LIMIT ?
	`, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating company commodities: %w", err)
	}

	commodities := make([]model.CommodityWeight, 0, len(rows))
	for _, row := range rows {
		commodities = append(commodities, model.CommodityWeight{Name: row.Name, Weight: row.KG})
	}
	return commodities, nil
}
