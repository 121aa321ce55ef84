package sqlite

import (
	"fmt"
	"time"

	"tradeboard/internal/model"
)

type dbShipment struct {
	ID                 string  `db:"id"`
	ImporterName       string  `db:"importer_name"`
	ImporterWebsite    string  `db:"importer_website"`
	ImporterCountry    string  `db:"importer_country"`
	ExporterName       string  `db:"exporter_name"`
	ExporterWebsite    string  `db:"exporter_website"`
	ExporterCountry    string  `db:"exporter_country"`
	ShipmentDate       string  `db:"shipment_date"`
	CommodityName      string  `db:"commodity_name"`
	IndustrySector     string  `db:"industry_sector"`
	WeightMetricTonnes float64 `db:"weight_metric_tonnes"`
}

func (row dbShipment) toModel() model.Shipment {
	return model.Shipment{
		ID:                 row.ID,
		ImporterName:       row.ImporterName,
		ImporterWebsite:    row.ImporterWebsite,
		ImporterCountry:    row.ImporterCountry,
		ExporterName:       row.ExporterName,
		ExporterWebsite:    row.ExporterWebsite,
		ExporterCountry:    row.ExporterCountry,
		ShipmentDate:       row.ShipmentDate,
		CommodityName:      row.CommodityName,
		IndustrySector:     row.IndustrySector,
		WeightMetricTonnes: row.WeightMetricTonnes,
	}
}

type dbCompany struct {
	Name           string  `db:"name"`
	Country        string  `db:"country"`
	Website        string  `db:"website"`
	Role           string  `db:"role"`
	TotalShipments int     `db:"total_shipments"`
	TotalWeight    float64 `db:"total_weight"`
}

func (row dbCompany) toModel() model.Company {
	return model.Company{
		Name:           row.Name,
		Country:        row.Country,
		Website:        row.Website,
		Role:           model.Role(row.Role),
		TotalShipments: row.TotalShipments,
		TotalWeight:    row.TotalWeight,
	}
}

type dbMonthlyVolume struct {
	MonthKey string  `db:"month_key"`
	KG       float64 `db:"kg"`
}

type dbDatasetLoad struct {
	Source   string `db:"source"`
	Records  int    `db:"records"`
	LoadedAt string `db:"loaded_at"`
}

func (row dbDatasetLoad) toModel() (model.DatasetLoad, error) {
	loadedAt, err := time.Parse(time.RFC3339Nano, row.LoadedAt)
	if err != nil {
		return model.DatasetLoad{}, fmt.Errorf("sqlite: parsing loaded_at %q: %w", row.LoadedAt, err)
	}
	return model.DatasetLoad{
		Source:   row.Source,
		Records:  row.Records,
		LoadedAt: loadedAt,
	}, nil
}

// monthLabel turns a YYYY-MM key into a label such as "May 2025".
func monthLabel(key string) string {
	parsed, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return parsed.Format("Jan 2006")
}

type dbCommodity struct {
	Name string  `db:"name"`
	KG   float64 `db:"kg"`
}

type dbPartner struct {
	Name      string `db:"name"`
	Country   string `db:"country"`
	Shipments int    `db:"shipments"`
}
