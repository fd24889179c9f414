package http

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/bnema/ytwav/internal/adapter/http/middleware"
	"github.com/bnema/ytwav/internal/adapter/http/ratelimit"
	"github.com/bnema/ytwav/internal/service"
	"github.com/bnema/ytwav/static"
)

type ServerConfig struct {
	// CORSOrigins lists the origins allowed to call /api/convert. Empty
	// means same-origin only.
	CORSOrigins []string
	BehindProxy bool
	CSRFSecret  string
	Version     string
	// Format is the output format shown on the form, e.g. "48000 Hz, 2 ch, 16-bit".
	Format  string
	Backend string
	Tools   map[string]ToolCheck
}

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
	csrf       *middleware.CSRFProtection
	cors       *cors.Cors
}

func NewServer(converter Converter, eventBus *service.EventBus, limiter *ratelimit.SubmissionLimiter, cfg ServerConfig) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		handlers:   NewHandlers(converter, limiter, cfg),
		sseHandler: NewSSEHandler(eventBus),
		csrf:       middleware.NewCSRFProtection(cfg.CSRFSecret),
		cors:       cors.New(corsOptions(cfg.CORSOrigins)),
	}

	s.registerRoutes()
	s.registerStatic()

	return s
}

// corsOptions restricts cross-origin calls to origins. rs/cors treats an
// empty list as "allow all", so that case gets an explicit deny.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{
			"Content-Disposition", "Retry-After",
			"X-Audio-Duration", "X-Audio-Source-Codec", "X-Audio-Source-Bitrate",
		},
		MaxAge:         600,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return opts
}

func (s *Server) registerRoutes() {
	s.mux.Handle("GET /{$}", s.csrf.Middleware(s.handlers.Index()))
	s.mux.Handle("POST /convert", s.csrf.Middleware(s.handlers.Convert()))

	api := s.cors.Handler(s.handlers.APIConvert())
	s.mux.Handle("POST /api/convert", api)
	s.mux.Handle("OPTIONS /api/convert", api)

	s.mux.HandleFunc("GET /events/{ticket}", s.sseHandler.Events())
	s.mux.HandleFunc("GET /healthz", s.handlers.Health())
}

func (s *Server) registerStatic() {
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static.FS))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.SecurityHeaders(s.mux).ServeHTTP(w, r)
}
