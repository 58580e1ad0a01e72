package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	icache "StockPulse/internal/service/cache"
	"StockPulse/internal/service/metrics"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	applogger "StockPulse/pkg/logger"
)

// ReportsHandler exposes the expensive batch endpoints over plain net/http
// for internal dashboards. Responses are cached whole: a restock report is
// built from a full catalog sweep and must not be recomputed per request.
type ReportsHandler struct {
	predictor *usecase.InventoryPredictor
	cache     icache.BytesCache
	rl        *ratelimit.Limiter
	l         *applogger.Logger
}

func NewReportsHandler(predictor *usecase.InventoryPredictor) *ReportsHandler {
	metrics.Register()
	return &ReportsHandler{predictor: predictor, rl: ratelimit.New()}
}

func (h *ReportsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ReportsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ReportsHandler) CriticalItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "critical_items"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		storeID := r.URL.Query().Get("storeId")
		limit := xhttp.ParseIntDefault(r.URL.Query().Get("limit"), 20)
		if !h.rl.Allow(r.RemoteAddr+":critical", 3, 1) {
			if h.l != nil {
				h.l.Warn("reports.critical rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "critical:" + storeID + ":" + strconv.Itoa(limit)
		if h.serveCached(w, endpoint, cacheKey) {
			return
		}
		res, err := h.predictor.GetCriticalItems(r.Context(), storeID, limit)
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.critical error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, res, 60*time.Second)
	}
}

func (h *ReportsHandler) RestockReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "restock_report"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		storeID := r.URL.Query().Get("storeId")
		if !h.rl.Allow(r.RemoteAddr+":restock", 2, 0.5) {
			if h.l != nil {
				h.l.Warn("reports.restock rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "restock:" + storeID
		if h.serveCached(w, endpoint, cacheKey) {
			return
		}
		res, err := h.predictor.GetRestockReport(r.Context(), storeID)
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.restock error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, res, 120*time.Second)
	}
}

func (h *ReportsHandler) serveCached(w http.ResponseWriter, endpoint, cacheKey string) bool {
	if h.cache == nil {
		return false
	}
	b, ok, err := h.cache.GetBytes(cacheKey)
	if err != nil {
		if h.l != nil {
			h.l.Warn("reports cache_get_error", applogger.String("endpoint", endpoint), applogger.Error(err))
		}
		return false
	}
	if !ok {
		if h.l != nil {
			h.l.Debug("reports cache_miss", applogger.String("key", cacheKey))
		}
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	if h.l != nil {
		h.l.Debug("reports cache_hit", applogger.String("key", cacheKey))
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("reports write_error", applogger.Error(err))
	}
	return true
}

func (h *ReportsHandler) writeJSON(w http.ResponseWriter, endpoint, cacheKey string, v interface{}, ttl time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		if h.l != nil {
			h.l.Error("reports marshal_error", applogger.String("endpoint", endpoint), applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil && h.l != nil {
			h.l.Warn("reports cache_set_error", applogger.Error(err))
		}
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("reports write_error", applogger.Error(err))
	}
}
