package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"tradeboard/internal/model"
	"tradeboard/internal/store"
)

// Dashboard is the query surface the handlers expose.
type Dashboard interface {
	Shipments(ctx context.Context, limit, offset int) (model.ShipmentPage, error)
	Companies(ctx context.Context) ([]model.Company, error)
	CompanyDetail(ctx context.Context, name string) (model.CompanyDetail, error)
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
	TopCommodities(ctx context.Context, limit int) ([]model.CommodityStat, error)
	MonthlyVolume(ctx context.Context) ([]model.MonthlyStat, error)
	ShipmentCount(ctx context.Context) (int, error)
	LastLoad(ctx context.Context) (model.DatasetLoad, error)
}

type handlers struct {
	dashboard       Dashboard
	log             *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

type healthResponse struct {
	Status    string             `json:"status"`
	Shipments int                `json:"shipments"`
	LastLoad  *model.DatasetLoad `json:"lastLoad"`
}

func (h *handlers) handleShipments(w http.ResponseWriter, r *http.Request) {
	limit, err := h.intParam(r, "limit", h.defaultPageSize)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit == 0 {
		limit = h.defaultPageSize
	}
	offset, err := h.intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	page, err := h.dashboard.Shipments(r.Context(), h.clamp(limit), offset)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.dashboard.Companies(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *handlers) handleCompanyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.DashboardStats(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) handleCompanyDetail(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil || strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid company name")
		return
	}

	detail, err := h.dashboard.CompanyDetail(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handlers) handleCommodities(w http.ResponseWriter, r *http.Request) {
	limit, err := h.intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	commodities, err := h.dashboard.TopCommodities(r.Context(), h.clamp(limit))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commodities)
}

func (h *handlers) handleMonthlyVolume(w http.ResponseWriter, r *http.Request) {
	volume, err := h.dashboard.MonthlyVolume(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, volume)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.dashboard.ShipmentCount(r.Context())
	if err != nil {
		h.log.WithError(err).Error("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	response := healthResponse{Status: "ok", Shipments: count}
	load, err := h.dashboard.LastLoad(r.Context())
	switch {
	case err == nil:
		response.LastLoad = &load
	case !errors.Is(err, store.ErrNotFound):
		h.log.WithError(err).Warn("reading last dataset load")
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *handlers) intParam(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *handlers) clamp(limit int) int {
	if h.maxPageSize > 0 && limit > h.maxPageSize {
		return h.maxPageSize
	}
	return limit
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
