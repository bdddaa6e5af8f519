// Package api serves the scoring engine over HTTP.
package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/fetcher"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// Options configures a Server.
type Options struct {
	DefaultProfile string
	Scoring        config.ScoringConfig
	Input          fetcher.Options
	RateLimit      float64 // requests per second across the process, 0 disables
	RateBurst      int
	AllowedOrigins []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Server holds the profiles it can score against. Profiles are loaded once
// and shared read-only between requests.
type Server struct {
	opts     Options
	profiles map[string]*profile.Profile
	limiter  *rate.Limiter
}

// NewServer loads every built-in profile plus any extra ones. An extra
// profile with a built-in's name replaces it.
func NewServer(opts Options, extra ...*profile.Profile) (*Server, error) {
	s := &Server{opts: opts, profiles: make(map[string]*profile.Profile)}

	for _, name := range profile.BuiltinNames() {
		p, err := profile.Builtin(name)
		if err != nil {
			return nil, eris.Wrapf(err, "api: load built-in profile %s", name)
		}
		s.profiles[name] = p
	}
	for _, p := range extra {
		if err := profile.Validate(p); err != nil {
			return nil, eris.Wrap(err, "api: extra profile")
		}
		s.profiles[p.Name] = p
	}

	if s.opts.DefaultProfile == "" {
		s.opts.DefaultProfile = "rumah-sehat"
	}
	if _, ok := s.profiles[s.opts.DefaultProfile]; !ok {
		return nil, eris.Errorf("api: default profile %q is not loaded", s.opts.DefaultProfile)
	}
	if s.opts.MaxBodyBytes <= 0 {
		s.opts.MaxBodyBytes = 10 << 20
	}
	if s.opts.RequestTimeout <= 0 {
		s.opts.RequestTimeout = 30 * time.Second
	}
	if s.opts.RateLimit > 0 {
		burst := s.opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.opts.RateLimit), burst)
	}
	return s, nil
}

// ProfileNames lists the loaded profiles in name order.
func (s *Server) ProfileNames() []string {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		if s.limiter != nil {
			v1.Use(rateLimit(s.limiter))
		}
		v1.Get("/profiles", s.handleListProfiles)
		v1.Get("/profiles/{name}", s.handleGetProfile)
		v1.Post("/score", s.handleScore)
		v1.Post("/missing", s.handleMissing)
	})

	return r
}
