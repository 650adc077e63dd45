package api

import (
	"context"
	"errors"
	"net/http"

	"FusionRisk/internal/domain/models"
	domsvc "FusionRisk/internal/domain/service"
	"FusionRisk/internal/usecase"
	xhttp "FusionRisk/pkg/http"
	"FusionRisk/pkg/http/middleware"
	applogger "FusionRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RiskRunner runs the risk engine.
type RiskRunner interface {
	Run(ctx context.Context, lb models.Lookback) (models.RiskReport, error)
}

// CalibrationSource serves the latest scheduled calibration report.
type CalibrationSource interface {
	Latest(ctx context.Context) (models.CalibrationReport, error)
}

// HealthChecker reports whether the metric store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PipelineEchoHandler exposes the four pipeline functions over HTTP.
type PipelineEchoHandler struct {
	logger      *applogger.Logger
	baseline    domsvc.BaselineAnalyzer
	forecaster  domsvc.Forecaster
	risk        RiskRunner
	calibration usecase.CalibrationRunner
	latest      CalibrationSource
	health      HealthChecker
	mw          []echo.MiddlewareFunc
}

func NewPipelineEchoHandler(
	logger *applogger.Logger,
	baseline domsvc.BaselineAnalyzer,
	forecaster domsvc.Forecaster,
	risk RiskRunner,
	calibration usecase.CalibrationRunner,
	latest CalibrationSource,
	health HealthChecker,
	mw ...echo.MiddlewareFunc,
) *PipelineEchoHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &PipelineEchoHandler{
		logger:      logger,
		baseline:    baseline,
		forecaster:  forecaster,
		risk:        risk,
		calibration: calibration,
		latest:      latest,
		health:      health,
		mw:          mw,
	}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/functions", h.mw...)
	g.POST("/baseline-analyzer", h.Baseline)
	g.POST("/predictive-forecaster", h.Forecast)
	g.POST("/risk-engine", h.Risk)
	g.POST("/calibration-loop", h.Calibration)
	g.GET("/calibration-loop/latest", h.LatestCalibration)
}

// runRequest binds the optional lookback override and carries the caller's
// Authorization header into the request context.
func (h *PipelineEchoHandler) runRequest(c echo.Context) (context.Context, models.Lookback, interface{}) {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, models.Lookback{}, verr
	}
	ctx := xhttp.WithForwardedAuthorization(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
	return ctx, req.Lookback(models.Lookback{}), nil
}

func (h *PipelineEchoHandler) Baseline(c echo.Context) error {
	ctx, lb, verr := h.runRequest(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.baseline.Analyze(ctx, lb)
	if err != nil {
		h.logger.Error("baseline analyzer error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Forecast(c echo.Context) error {
	ctx, lb, verr := h.runRequest(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.forecaster.Forecast(ctx, lb)
	if err != nil {
		h.logger.Error("predictive forecaster error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Risk(c echo.Context) error {
	ctx, lb, verr := h.runRequest(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.risk.Run(ctx, lb)
	if err != nil {
		h.logger.Error("risk engine error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Calibration(c echo.Context) error {
	ctx, lb, verr := h.runRequest(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.calibration.Run(ctx, lb)
	if err != nil {
		h.logger.Error("calibration loop error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) LatestCalibration(c echo.Context) error {
	if h.latest == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("No scheduled calibration available"))
	}
	res, err := h.latest.Latest(c.Request().Context())
	if errors.Is(err, usecase.ErrNoCalibration) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("No scheduled calibration available"))
	}
	if err != nil {
		h.logger.Error("latest calibration error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Failed to load calibration report").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", applogger.Error(err))
			return xhttp.ErrorResponse(c, http.StatusServiceUnavailable, "Store unavailable", err.Error())
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Middlewares builds the chain applied to /functions: authentication first,
// then the optional rate limiter.
func Middlewares(authn middleware.RequestAuthenticator, l *applogger.Logger, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append([]echo.MiddlewareFunc{middleware.Auth(authn, l)}, extra...)
}
