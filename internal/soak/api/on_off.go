package api

import (
	"encoding/json"

	"github.com/Borislavv/shared-ref/internal/soak/scenario"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// OnOffController pauses and resumes the soak workers, e.g. to take a clean
// accounting snapshot while nothing churns.
type OnOffController struct{}

func NewOnOffController() *OnOffController {
	return &OnOffController{}
}

type onOffStatusResponse struct {
	Running bool   `json:"running"`
	Message string `json:"message,omitempty"`
}

// On handles GET /soak/on and resumes the scenario workers.
func (c *OnOffController) On(ctx *fasthttp.RequestCtx) {
	scenario.Resume()
	resp := onOffStatusResponse{Running: true, Message: "soak resumed"}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(resp)
}

// Off handles GET /soak/off and pauses the scenario workers.
func (c *OnOffController) Off(ctx *fasthttp.RequestCtx) {
	scenario.Pause()
	resp := onOffStatusResponse{Running: false, Message: "soak paused"}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(resp)
}

// AddRoute attaches the on/off routes to the given router.
func (c *OnOffController) AddRoute(r *router.Router) {
	r.GET("/soak/on", c.On)
	r.GET("/soak/off", c.Off)
}
