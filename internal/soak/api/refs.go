package api

import (
	"encoding/json"

	"github.com/Borislavv/shared-ref/internal/soak/scenario"
	"github.com/Borislavv/shared-ref/internal/soak/table"
	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const debugRefsPath = "/debug/refs"

// RefsController reports the block accounting and the soak state: how many
// blocks exist, how many payloads died, how many slots the table holds.
// Diagnostics only, the numbers are not an atomic snapshot.
type RefsController struct {
	tbl *table.Table[scenario.Payload]
}

func NewRefsController(tbl *table.Table[scenario.Payload]) *RefsController {
	return &RefsController{tbl: tbl}
}

type refsResponse struct {
	BlocksAllocated   int64 `json:"blocksAllocated"`
	PayloadsDestroyed int64 `json:"payloadsDestroyed"`
	BlocksFreed       int64 `json:"blocksFreed"`
	BlocksLive        int64 `json:"blocksLive"`
	TableEntries      int   `json:"tableEntries"`
	Running           bool  `json:"running"`
}

func (c *RefsController) Refs(ctx *fasthttp.RequestCtx) {
	allocated, destroyed, freed := sharedref.AllocStats()
	resp := refsResponse{
		BlocksAllocated:   allocated,
		PayloadsDestroyed: destroyed,
		BlocksFreed:       freed,
		BlocksLive:        allocated - freed,
		TableEntries:      c.tbl.Len(),
		Running:           scenario.IsRunning(),
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json; charset=utf-8")
	_ = json.NewEncoder(ctx).Encode(resp)
}

// AddRoute attaches the refs route to the given router.
func (c *RefsController) AddRoute(r *router.Router) {
	r.GET(debugRefsPath, c.Refs)
}
