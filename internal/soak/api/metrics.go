package api

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const metricsPath = "/metrics"

// MetricsController exposes all registered metrics in Prometheus text format.
type MetricsController struct{}

func NewMetricsController() *MetricsController {
	return &MetricsController{}
}

func (c *MetricsController) Metrics(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	metrics.WritePrometheus(ctx, true)
}

// AddRoute attaches the metrics route to the given router.
func (c *MetricsController) AddRoute(r *router.Router) {
	r.GET(metricsPath, c.Metrics)
}
