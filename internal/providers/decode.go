package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"tradeboard/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// DecodeShipments reads a shipment array from payload. An empty path expects
// a top-level array; otherwise path is a gjson path to the array.
func DecodeShipments(payload []byte, path string) ([]model.Shipment, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("providers: payload is not valid json")
	}

	root := gjson.ParseBytes(payload)
	if path = strings.TrimSpace(path); path != "" {
		root = root.Get(path)
		if !root.Exists() {
			return nil, fmt.Errorf("providers: path %q not found in payload", path)
		}
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("providers: expected an array of shipments, got %s", root.Type)
	}

	records := root.Array()
	shipments := make([]model.Shipment, 0, len(records))
	for i, record := range records {
		if !record.IsObject() {
			return nil, fmt.Errorf("providers: record %d is not an object", i)
		}
		shipments = append(shipments, shipmentFromRecord(record))
	}
	if len(shipments) == 0 {
		return nil, ErrNoRecords
	}
	return shipments, nil
}

func shipmentFromRecord(record gjson.Result) model.Shipment {
	shipment := model.Shipment{
		ID:                 getString(record, "id"),
		ImporterName:       getString(record, "importer_name"),
		ImporterWebsite:    getString(record, "importer_website"),
		ImporterCountry:    getString(record, "importer_country"),
		ExporterName:       getString(record, "exporter_name"),
		ExporterWebsite:    getString(record, "exporter_website"),
		ExporterCountry:    getString(record, "exporter_country"),
		ShipmentDate:       NormalizeDate(getString(record, "shipment_date")),
		CommodityName:      getString(record, "commodity_name"),
		IndustrySector:     getString(record, "industry_sector"),
		WeightMetricTonnes: record.Get("weight_metric_tonnes").Float(),
	}
	if shipment.ID == "" {
		shipment.ID = uuid.NewString()
	}
	return shipment
}

func getString(record gjson.Result, key string) string {
	value := record.Get(key)
	if !value.Exists() || value.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(value.String())
}

// NormalizeDate rewrites recognised date formats to YYYY-MM-DD and returns
// anything else unchanged.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return value
}
