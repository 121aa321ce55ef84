package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/model"
	"tradeboard/internal/store"
)

func shipment(id, importer, importerCountry, exporter, exporterCountry, date, commodity string, tonnes float64) model.Shipment {
	return model.Shipment{
		ID:                 id,
		ImporterName:       importer,
		ImporterCountry:    importerCountry,
		ImporterWebsite:    website(importer, importerCountry),
		ExporterName:       exporter,
		ExporterCountry:    exporterCountry,
		ExporterWebsite:    website(exporter, exporterCountry),
		ShipmentDate:       date,
		CommodityName:      commodity,
		IndustrySector:     "Industrial",
		WeightMetricTonnes: tonnes,
	}
}

func website(name, country string) string {
	return name + "." + country
}

// fixtureShipments covers a company on both sides (Acme US, Globex), an
// exporter only (Initech), an importer only (Umbrella) and a second legal
// entity sharing a name (Acme CA).
func fixtureShipments() []model.Shipment {
	return []model.Shipment{
		shipment("s1", "Acme", "US", "Globex", "DE", "2025-05-03", "Steel", 10),
		shipment("s2", "Acme", "US", "Globex", "DE", "2025-05-20", "Steel", 5),
		shipment("s3", "Acme", "US", "Initech", "CN", "2025-06-01", "Copper", 2),
		shipment("s4", "Globex", "DE", "Acme", "US", "2025-06-15", "Wheat", 20),
		shipment("s5", "Umbrella", "FR", "Acme", "US", "2025-04-10", "Wheat", 1),
		shipment("s6", "Umbrella", "FR", "Initech", "CN", "2024-12-31", "Copper", 3),
		shipment("s7", "Acme", "CA", "Initech", "CN", "2025-06-20", "Steel", 4),
	}
}

func setupTestStore(t *testing.T, shipments []model.Shipment) *Store {
	t.Helper()

	st, err := New(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	if shipments != nil {
		require.NoError(t, st.ReplaceShipments(context.Background(), "test", shipments))
	}
	return st
}

func TestStore_Companies(t *testing.T) {
	ctx := context.Background()

	t.Run("merges importer and exporter roles per entity", func(t *testing.T) {
		st := setupTestStore(t, fixtureShipments())

		got, err := st.Companies(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 5)

		want := []model.Company{
			{Name: "Acme", Country: "US", Website: "Acme.US", Role: model.RoleBoth, TotalShipments: 5, TotalWeight: 38000},
			{Name: "Globex", Country: "DE", Website: "Globex.DE", Role: model.RoleBoth, TotalShipments: 3, TotalWeight: 35000},
			{Name: "Initech", Country: "CN", Website: "Initech.CN", Role: model.RoleExporter, TotalShipments: 3, TotalWeight: 9000},
			{Name: "Umbrella", Country: "FR", Website: "Umbrella.FR", Role: model.RoleImporter, TotalShipments: 2, TotalWeight: 4000},
			{Name: "Acme", Country: "CA", Website: "Acme.CA", Role: model.RoleImporter, TotalShipments: 1, TotalWeight: 4000},
		}
		for i := range want {
			assert.Equal(t, want[i].Name, got[i].Name, "row %d", i)
			assert.Equal(t, want[i].Country, got[i].Country, "row %d", i)
			assert.Equal(t, want[i].Website, got[i].Website, "row %d", i)
			assert.Equal(t, want[i].Role, got[i].Role, "row %d", i)
			assert.Equal(t, want[i].TotalShipments, got[i].TotalShipments, "row %d", i)
			assert.InDelta(t, want[i].TotalWeight, got[i].TotalWeight, 1e-6, "row %d", i)
		}
	})

	t.Run("filters both sides by name", func(t *testing.T) {
		st := setupTestStore(t, fixtureShipments())

		got, err := st.Companies(ctx, "Acme")
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "US", got[0].Country)
		assert.Equal(t, model.RoleBoth, got[0].Role)
		assert.Equal(t, 5, got[0].TotalShipments)
		assert.Equal(t, "CA", got[1].Country)
		assert.Equal(t, model.RoleImporter, got[1].Role)
	})

	t.Run("different websites are different entities", func(t *testing.T) {
		a := shipment("w1", "Acme", "US", "Globex", "DE", "2025-01-01", "Steel", 1)
		b := shipment("w2", "Globex", "DE", "Acme", "US", "2025-01-02", "Steel", 1)
		b.ExporterWebsite = "acme-shop.example"
		st := setupTestStore(t, []model.Shipment{a, b})

		got, err := st.Companies(ctx, "Acme")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, company := range got {
			assert.NotEqual(t, model.RoleBoth, company.Role)
		}
	})

	t.Run("a company shipping to itself counts once per side", func(t *testing.T) {
		st := setupTestStore(t, []model.Shipment{
			shipment("self", "Acme", "US", "Acme", "US", "2025-03-01", "Steel", 2),
		})

		got, err := st.Companies(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Acme", got[0].Name)
		assert.Equal(t, model.RoleBoth, got[0].Role)
		assert.Equal(t, 2, got[0].TotalShipments)
		assert.InDelta(t, 4000, got[0].TotalWeight, 1e-6)
	})

	t.Run("empty names are not companies", func(t *testing.T) {
		st := setupTestStore(t, []model.Shipment{
			shipment("e1", "", "", "Globex", "DE", "2025-03-01", "Steel", 1),
			shipment("e2", "Acme", "US", "", "", "2025-03-02", "Steel", 1),
		})

		got, err := st.Companies(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, company := range got {
			assert.NotEmpty(t, company.Name)
			assert.Equal(t, 1, company.TotalShipments)
		}
	})

	t.Run("unknown name returns no rows", func(t *testing.T) {
		st := setupTestStore(t, fixtureShipments())

		got, err := st.Companies(ctx, "Nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("names are bound, not interpolated", func(t *testing.T) {
		st := setupTestStore(t, []model.Shipment{
			shipment("q1", "O'Brien & Sons", "IE", "Globex", "DE", "2025-01-01", "Steel", 1),
		})

		got, err := st.Companies(ctx, "O'Brien & Sons")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.RoleImporter, got[0].Role)
	})
}

func TestStore_CompanyStats(t *testing.T) {
	st := setupTestStore(t, fixtureShipments())

	got, err := st.CompanyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStats{TotalImporters: 3, TotalExporters: 3}, got)
}

func TestStore_CompanyStatsSkipsEmptyNames(t *testing.T) {
	st := setupTestStore(t, []model.Shipment{
		shipment("e1", "", "", "Globex", "DE", "2025-03-01", "Steel", 1),
		shipment("e2", "Acme", "US", "", "", "2025-03-02", "Steel", 1),
		shipment("e3", "Acme", "US", "Globex", "DE", "2025-03-03", "Steel", 1),
	})

	got, err := st.CompanyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStats{TotalImporters: 1, TotalExporters: 1}, got)

	partners, err := st.TradingPartners(context.Background(), "Acme", model.RoleImporter, 3)
	require.NoError(t, err)
	assert.Equal(t, []model.TradingPartner{{Name: "Globex", Country: "DE", Shipments: 1}}, partners)
}

func TestStore_MonthlyVolume(t *testing.T) {
	shipments := append(fixtureShipments(), shipment("bad", "Acme", "US", "Globex", "DE", "sometime", "Steel", 100))
	st := setupTestStore(t, shipments)

	got, err := st.MonthlyVolume(context.Background())
	require.NoError(t, err)

	want := []model.MonthlyStat{
		{Month: "Dec 2024", KG: 3000},
		{Month: "Apr 2025", KG: 1000},
		{Month: "May 2025", KG: 15000},
		{Month: "Jun 2025", KG: 26000},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Month, got[i].Month)
		assert.InDelta(t, want[i].KG, got[i].KG, 1e-6)
	}
}

func TestStore_TopCommodities(t *testing.T) {
	st := setupTestStore(t, fixtureShipments())

	got, err := st.TopCommodities(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Wheat", got[0].Commodity)
	assert.InDelta(t, 21000, got[0].KG, 1e-6)
	assert.Equal(t, "Steel", got[1].Commodity)
	assert.InDelta(t, 19000, got[1].KG, 1e-6)
}

func TestStore_TradingPartners(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, fixtureShipments())

	t.Run("importer side lists exporters", func(t *testing.T) {
		got, err := st.TradingPartners(ctx, "Acme", model.RoleImporter, 3)
		require.NoError(t, err)
		assert.Equal(t, []model.TradingPartner{
			{Name: "Globex", Country: "DE", Shipments: 2},
			{Name: "Initech", Country: "CN", Shipments: 2},
		}, got)
	})

	t.Run("exporter side lists importers", func(t *testing.T) {
		got, err := st.TradingPartners(ctx, "Initech", model.RoleExporter, 3)
		require.NoError(t, err)
		assert.Equal(t, []model.TradingPartner{
			{Name: "Acme", Country: "CA", Shipments: 1},
			{Name: "Acme", Country: "US", Shipments: 1},
			{Name: "Umbrella", Country: "FR", Shipments: 1},
		}, got)
	})

	t.Run("respects the limit", func(t *testing.T) {
		got, err := st.TradingPartners(ctx, "Initech", model.RoleExporter, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("rejects the combined role", func(t *testing.T) {
		_, err := st.TradingPartners(ctx, "Acme", model.RoleBoth, 3)
		assert.Error(t, err)
	})
}

func TestStore_CompanyCommodities(t *testing.T) {
	st := setupTestStore(t, fixtureShipments())

	got, err := st.CompanyCommodities(context.Background(), "Acme", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Wheat", got[0].Name)
	assert.InDelta(t, 21000, got[0].Weight, 1e-6)
	assert.Equal(t, "Steel", got[1].Name)
	assert.InDelta(t, 19000, got[1].Weight, 1e-6)
	assert.Equal(t, "Copper", got[2].Name)
	assert.InDelta(t, 2000, got[2].Weight, 1e-6)
}

func TestStore_ListShipments(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, fixtureShipments())

	count, err := st.CountShipments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	got, err := st.ListShipments(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "s4", got[0].ID)
	assert.Equal(t, "s3", got[1].ID)
	assert.Equal(t, "s2", got[2].ID)
	assert.Equal(t, fixtureShipments()[3], got[0])

	past, err := st.ListShipments(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestStore_ReplaceShipments(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the previous dataset and records the load", func(t *testing.T) {
		st := setupTestStore(t, fixtureShipments())

		before := time.Now().UTC().Add(-time.Second)
		replacement := []model.Shipment{shipment("n1", "Hooli", "US", "Pied Piper", "US", "2025-02-02", "Chips", 1)}
		require.NoError(t, st.ReplaceShipments(ctx, "second", replacement))

		count, err := st.CountShipments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		load, err := st.LastLoad(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", load.Source)
		assert.Equal(t, 1, load.Records)
		assert.True(t, load.LoadedAt.After(before))
	})

	t.Run("keeps duplicate ids as separate shipments", func(t *testing.T) {
		dup := shipment("same", "Acme", "US", "Globex", "DE", "2025-01-01", "Steel", 1)
		st := setupTestStore(t, []model.Shipment{dup, dup})

		companies, err := st.Companies(ctx, "Acme")
		require.NoError(t, err)
		require.Len(t, companies, 1)
		assert.Equal(t, 2, companies[0].TotalShipments)
	})
}

func TestStore_LastLoadEmpty(t *testing.T) {
	st := setupTestStore(t, nil)

	_, err := st.LastLoad(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_EmptyDataset(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, nil)

	companies, err := st.Companies(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, companies)

	stats, err := st.CompanyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStats{}, stats)

	monthly, err := st.MonthlyVolume(ctx)
	require.NoError(t, err)
	assert.Empty(t, monthly)
}

func TestNew_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tradeboard.db")

	st, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceShipments(ctx, "test", fixtureShipments()))
	require.NoError(t, st.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.CountShipments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "May 2025", monthLabel("2025-05"))
	assert.Equal(t, "garbage", monthLabel("garbage"))
}
