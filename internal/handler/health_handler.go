package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/telemetry"
)

// Reporter builds and emits health reports
type Reporter interface {
	BuildReport(ctx context.Context) *telemetry.Report
	EmitHourlyReport(ctx context.Context) (*telemetry.Report, error)
}

// HealthHandler exposes the health telemetry engine
type HealthHandler struct {
	reporter Reporter
}

func NewHealthHandler(reporter Reporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// ReportNowResponse is returned by the manual report trigger
type ReportNowResponse struct {
	Message   string            `json:"message"`
	Delivered bool              `json:"delivered"`
	Report    *telemetry.Report `json:"report"`
}

// Health godoc
// @Summary Current health snapshot
// @Tags Health
// @Produce json
// @Success 200 {object} telemetry.Report
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.reporter.BuildReport(c.Request.Context()))
}

// ReportNow godoc
// @Summary Emit a health report immediately
// @Tags Health
// @Produce json
// @Param X-API-Key header string false "Health API key"
// @Param apiKey query string false "Health API key"
// @Success 200 {object} ReportNowResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /health/report-now [post]
func (h *HealthHandler) ReportNow(c *gin.Context) {
	report, err := h.reporter.EmitHourlyReport(c.Request.Context())

	resp := ReportNowResponse{
		Message:   "Health report sent",
		Delivered: err == nil,
		Report:    report,
	}
	if err != nil {
		resp.Message = "Health report generated with delivery errors: " + err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
