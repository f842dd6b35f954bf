package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mediaplayer/internal/config"
	"mediaplayer/internal/media"
)

// Options holds the dependencies for a Server.
type Options struct {
	Config *config.Config
	Store  media.ShareStore // nil when sharing is disabled
	Logger media.Logger
	Clock  media.Clock
}

// Server is the HTTP layer over the resolver, classifier and share
// service. All mutable state lives behind the share store; the server
// itself only holds immutable configuration.
type Server struct {
	cfg      *config.Config
	resolver *media.PathResolver
	shares   *media.ShareService
	log      media.Logger
	engine   *gin.Engine
}

// routeSet is one of the mutually exclusive route layouts. Exactly one is
// mounted per process, selected by mode at startup.
type routeSet interface {
	register(e *gin.Engine)
}

// privateRoutes mounts the full browse/view/share surface plus the public
// token route.
type privateRoutes struct{ s *Server }

func (r privateRoutes) register(e *gin.Engine) {
	e.GET("/healthz", r.s.healthz)
	e.GET("/", r.s.browse)
	e.GET("/view", r.s.view)
	e.GET("/share", r.s.shareForm)
	e.POST("/share", r.s.shareCreate)
	e.GET("/share/result", r.s.shareResult)
	e.POST("/share/revoke", r.s.shareRevoke)
	e.GET("/v/:token", r.s.publicView)
}

// publicRoutes mounts only the token route; browsing is not reachable.
type publicRoutes struct{ s *Server }

func (r publicRoutes) register(e *gin.Engine) {
	e.GET("/healthz", r.s.healthz)
	v := e.Group("/v")
	v.Use(cors.Default())
	v.GET("/:token", r.s.publicView)
}

// New creates a fully wired Server from the given options. The config
// must already be validated.
func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = media.NewNopLogger()
	}

	resolver, err := media.NewPathResolver(opts.Config.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving media root: %w", err)
	}

	shares := media.NewShareService(opts.Store, resolver, opts.Clock, opts.Config.DefaultTTL(), log)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLog(log), securityHeaders())
	engine.SetHTMLTemplate(pageTemplates())

	s := &Server{
		cfg:      opts.Config,
		resolver: resolver,
		shares:   shares,
		log:      log,
		engine:   engine,
	}

	var routes routeSet
	switch opts.Config.Mode {
	case config.ModePublic:
		routes = publicRoutes{s}
	default:
		routes = privateRoutes{s}
	}
	routes.register(engine)

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on the configured listen address until the
// listener fails.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.engine,
	}
	s.log.Info("listening", "addr", s.cfg.ListenAddr, "root", s.resolver.Root(), "mode", s.cfg.Mode)
	return srv.ListenAndServe()
}

func (s *Server) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// publicURL builds the link for a token, absolute when a public base URL
// is configured.
func (s *Server) publicURL(token string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/v/" + token
	}
	return "/v/" + token
}

// fail maps the internal failure causes onto their externally observable
// statuses. Escapes and missing targets stay distinguishable here even
// though clients only ever see forbidden or not-found.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrPathEscapes):
		s.log.Warn("path escape rejected", "request_id", c.GetString(requestIDKey))
		c.String(http.StatusForbidden, "Forbidden")
	case errors.Is(err, media.ErrPathNotFound):
		c.String(http.StatusNotFound, "Not Found")
	case errors.Is(err, media.ErrStoreUnavailable):
		c.String(http.StatusServiceUnavailable, "Sharing is not configured")
	default:
		s.log.Error("request failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
	}
	c.Abort()
}
