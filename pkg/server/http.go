package httpserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// HttpController registers one or more routes on the shared router.
type HttpController interface {
	AddRoute(r *router.Router)
}

type HTTP struct {
	ctx    context.Context
	name   string
	port   string
	server *fasthttp.Server
	alive  atomic.Bool
}

func New(ctx context.Context, name, port string, controllers []HttpController) (*HTTP, error) {
	s := &HTTP{ctx: ctx, name: name, port: port}
	s.initServer(s.buildRouter(controllers))
	return s, nil
}

// ListenAndServe blocks until the server stops or the context is cancelled.
func (s *HTTP) ListenAndServe() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go s.serve(wg)

	wg.Add(1)
	go s.shutdown(wg)
}

// IsAlive reports whether the server is accepting connections.
func (s *HTTP) IsAlive() bool {
	return s.alive.Load()
}

func (s *HTTP) serve(wg *sync.WaitGroup) {
	defer wg.Done()

	port := s.port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	log.Info().Msgf("[server] %v was started on %v", s.name, port)
	defer log.Info().Msgf("[server] %v was stopped on %v", s.name, port)

	s.alive.Store(true)
	defer s.alive.Store(false)

	if err := s.server.ListenAndServe(port); err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to listen and serve port %v: %v", s.name, port, err.Error())
	}
}

func (s *HTTP) shutdown(wg *sync.WaitGroup) {
	defer wg.Done()

	<-s.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[server] %v shutdown failed: %v", s.name, err.Error())
		}
	}
}

func (s *HTTP) buildRouter(controllers []HttpController) *router.Router {
	r := router.New()
	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		_, _ = ctx.Write([]byte(`{"status": 404,"error":"Not Found","message":"Route not found, check the URL is correct."}`))
	}
	for _, contr := range controllers {
		contr.AddRoute(r)
	}
	return r
}

func (s *HTTP) recoverMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Msgf("[server] recovered from panic: %v", err)
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				_, _ = ctx.Write([]byte(`{"status": 500,"error":"Internal Server Error"}`))
			}
		}()
		next(ctx)
	}
}

func (s *HTTP) initServer(r *router.Router) {
	s.server = &fasthttp.Server{
		Handler:                       s.recoverMiddleware(r.Handler),
		GetOnly:                       true,             // The diagnostic API is read-only.
		ReduceMemoryUsage:             true,             // Reuse internal buffers aggressively to lower memory footprint and GC overhead.
		DisablePreParseMultipartForm:  true,             // Disable built-in multipart form parsing to avoid unnecessary allocations when not needed.
		DisableHeaderNamesNormalizing: true,             // Prevent normalization of header names to save CPU cycles.
		CloseOnShutdown:               true,             // Ensure that all open connections are closed when the server shuts down gracefully.
		ReadBufferSize:                4 * 1024,         // 4 KiB read buffer, plenty for metric scrapes and probe hits.
		WriteBufferSize:               4 * 1024,         // 4 KiB write buffer.
		ReadTimeout:                   time.Second,      // Maximum time allowed to read the full request to mitigate slowloris attacks.
		WriteTimeout:                  5 * time.Second,  // Metric exports can grow, give writes a little room.
		IdleTimeout:                   60 * time.Second, // Maximum idle time before a keep-alive connection is closed.
		TCPKeepalive:                  true,             // OS-level TCP keep-alive probes to detect and clean up dead peer connections.
		TCPKeepalivePeriod:            30 * time.Second,
		NoDefaultServerHeader:         true,
		MaxRequestBodySize:            1 << 20, // 1 MiB, nothing here accepts bodies anyway.
	}
}
