package api

import (
	models "StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// InventoryEchoHandler implements the Echo-based analysis endpoints.
type InventoryEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.InventoryPredictor
	history   *usecase.SalesHistoryUseCase
	reports   *ReportsHandler
}

func NewInventoryEchoHandler(logger *xlogger.Logger, predictor *usecase.InventoryPredictor, history *usecase.SalesHistoryUseCase) *InventoryEchoHandler {
	return &InventoryEchoHandler{logger: logger, predictor: predictor, history: history}
}

// SetReports mounts the cached report endpoints under /internal.
func (h *InventoryEchoHandler) SetReports(r *ReportsHandler) { h.reports = r }

func (h *InventoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/inventory")
	g.GET("/analysis/:productId", h.Analysis)
	g.GET("/sales/:productId", h.SalesHistory)
	g.GET("/analyze-all", h.AnalyzeAll)
	g.GET("/critical-items", h.CriticalItems)
	g.GET("/restock-report", h.RestockReport)

	// Rate-limited, response-cached variants for ops dashboards.
	if h.reports != nil {
		ig := e.Group("/internal/reports")
		ig.GET("/critical-items", echo.WrapHandler(h.reports.CriticalItems()))
		ig.GET("/restock", echo.WrapHandler(h.reports.RestockReport()))
	}
}

func (h *InventoryEchoHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.predictor.AnalyzeProduct(c.Request().Context(), usecase.AnalysisParams{
		ProductID:    req.ProductID,
		VariantID:    req.VariantID,
		LeadTimeDays: req.LeadTimeDays,
		HorizonDays:  req.HorizonDays,
		Persist:      req.Persist,
	})
	if !res.Success {
		if res.Error == usecase.ErrProductNotFound {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(res.Error))
		}
		h.logger.Error("analysis failed",
			xlogger.String("product", req.ProductID),
			xlogger.String("error", res.Error))
		return xhttp.AppErrorResponse(c, xhttp.InternalError(res.Error))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *InventoryEchoHandler) SalesHistory(c echo.Context) error {
	req := &models.SalesHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.history.GetSalesHistory(c.Request().Context(), usecase.GetSalesHistoryParams{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Days:      req.Days,
	})
	if err != nil {
		h.logger.Error("sales history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *InventoryEchoHandler) AnalyzeAll(c echo.Context) error {
	req := &models.AnalyzeAllRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	batch, err := h.predictor.AnalyzeAll(c.Request().Context(), req.StoreID, req.Persist)
	if err != nil {
		h.logger.Error("analyze-all usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, batch)
}

func (h *InventoryEchoHandler) CriticalItems(c echo.Context) error {
	req := &models.CriticalItemsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	items, err := h.predictor.GetCriticalItems(c.Request().Context(), req.StoreID, req.Limit)
	if err != nil {
		h.logger.Error("critical-items usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *InventoryEchoHandler) RestockReport(c echo.Context) error {
	req := &models.RestockReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.predictor.GetRestockReport(c.Request().Context(), req.StoreID)
	if err != nil {
		h.logger.Error("restock-report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}
