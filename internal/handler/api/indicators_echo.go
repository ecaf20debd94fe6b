package api

import (
	"net/http"

	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"
	xhttp "MarketRegime/pkg/http"
	xlogger "MarketRegime/pkg/logger"

	"github.com/labstack/echo/v4"
)

const indicatorCacheControl = "public, max-age=60"

// IndicatorsEchoHandler serves the indicator catalog and per-indicator readings.
type IndicatorsEchoHandler struct {
	logger *xlogger.Logger
	svc    domsvc.IndicatorEvaluator
}

func NewIndicatorsEchoHandler(logger *xlogger.Logger, svc domsvc.IndicatorEvaluator) *IndicatorsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &IndicatorsEchoHandler{logger: logger, svc: svc}
}

func (h *IndicatorsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/indicators", h.Catalog)
	g.GET("/indicators/:name", h.Indicator)
	// short aliases, e.g. /api/line
	for _, info := range h.svc.Catalog() {
		name := info.Name
		g.GET("/"+name, func(c echo.Context) error { return h.serve(c, name) })
	}
}

func (h *IndicatorsEchoHandler) Catalog(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Catalog())
}

func (h *IndicatorsEchoHandler) Indicator(c echo.Context) error {
	return h.serve(c, c.Param("name"))
}

// serve always answers 200 for a known indicator. A bad range is not an error: the
// service substitutes its default window.
func (h *IndicatorsEchoHandler) serve(c echo.Context, name string) error {
	req := &models.IndicatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.logger.Debug("indicator query rejected, using default range",
			xlogger.String("indicator", name),
			xlogger.String("range", c.QueryParam("range")),
			xlogger.Any("errors", verr))
		req.Range = ""
	}

	resp, ok := h.svc.Evaluate(c.Request().Context(), name, models.Lookback(req.Range))
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("indicator %q not found", name).WithParam("name", name))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, indicatorCacheControl)
	return c.JSON(http.StatusOK, resp)
}
