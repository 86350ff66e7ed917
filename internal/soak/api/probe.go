package api

import (
	"github.com/Borislavv/shared-ref/pkg/k8s/probe/liveness"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const k8sProbePath = "/k8s/probe"

var (
	probeAliveResponseBytes = []byte(`{
	  "status": 200,
	  "message": "I'm fine :D'"
	}`)
	probeDeadResponseBytes = []byte(`{
	  "status": 503,
	  "message": "soak harness is not healthy"
	}`)
)

// ProbeController serves the k8s liveness endpoint.
type ProbeController struct {
	probe liveness.Prober
}

func NewProbeController(probe liveness.Prober) *ProbeController {
	return &ProbeController{probe: probe}
}

func (c *ProbeController) Probe(ctx *fasthttp.RequestCtx) {
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write(probeAliveResponseBytes)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	_, _ = ctx.Write(probeDeadResponseBytes)
}

// AddRoute attaches the probe route to the given router.
func (c *ProbeController) AddRoute(r *router.Router) {
	r.GET(k8sProbePath, c.Probe)
}
