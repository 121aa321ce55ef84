package model

import "time"

type Role string

const (
	RoleImporter Role = "importer"
	RoleExporter Role = "exporter"
	RoleBoth     Role = "both"
)

type Shipment struct {
	ID                 string  `json:"id"`
	ImporterName       string  `json:"importer_name"`
	ImporterWebsite    string  `json:"importer_website"`
	ImporterCountry    string  `json:"importer_country"`
	ExporterName       string  `json:"exporter_name"`
	ExporterWebsite    string  `json:"exporter_website"`
	ExporterCountry    string  `json:"exporter_country"`
	ShipmentDate       string  `json:"shipment_date"`
	CommodityName      string  `json:"commodity_name"`
	IndustrySector     string  `json:"industry_sector"`
	WeightMetricTonnes float64 `json:"weight_metric_tonnes"`
}

type ShipmentPage struct {
	Data  []Shipment `json:"data"`
	Total int        `json:"total"`
}

// Company is one legal entity keyed by name, country and website. Weights are in kg.
type Company struct {
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	Website        string  `json:"website"`
	Role           Role    `json:"role"`
	TotalShipments int     `json:"totalShipments"`
	TotalWeight    float64 `json:"totalWeight"`
}

type TradingPartner struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Shipments int    `json:"shipments"`
}

type CommodityWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type CompanyDetail struct {
	Company
	TopTradingPartners []TradingPartner  `json:"topTradingPartners"`
	TopCommodities     []CommodityWeight `json:"topCommodities"`
}

type CompanyStats struct {
	TotalImporters int `json:"totalImporters"`
	TotalExporters int `json:"totalExporters"`
}

type MonthlyStat struct {
	Month string  `json:"month"`
	KG    float64 `json:"kg"`
}

type CommodityStat struct {
	Commodity string  `json:"commodity"`
	KG        float64 `json:"kg"`
}

type DashboardStats struct {
	CompanyStats   CompanyStats    `json:"companyStats"`
	MonthlyVolume  []MonthlyStat   `json:"monthlyVolume"`
	TopCommodities []CommodityStat `json:"topCommodities"`
}

type DatasetLoad struct {
	Source   string    `json:"source"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt"`
}

// TonnesToKG converts the dataset's metric tonnes into the kilograms every aggregate reports.
func TonnesToKG(tonnes float64) float64 {
	return tonnes * 1000
}
