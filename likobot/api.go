package likobot

import (
	"context"
	"errors"
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/gin-contrib/cors"
	ginPprof "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	pprofPrefix            = "/debug"
	apiPrefix              = "/api"
	apiHealthCheck         = "/healthz"
	apiDiscordInteractions = "/discord/interactions"
	apiPathMethod          = "/methods/:name"
	apiPathSearch          = "/search"
	apiPathLookups         = "/lookups"

	defaultLookupsLimit = 25
)

const (
	xRequestIDHeader = "X-Request-ID"
)

var (
	structValidator = validator.New()
)

var (
	Ascending  Sort = "asc"
	Descending Sort = "desc"
)

// API serves the documentation and lookup history over HTTP
type API struct {
	config     *APIConfig
	httpServer *http.Server
	listener   net.Listener
	engine     *gin.Engine
	logger     *slog.Logger
	handlers   *APIHandlers
}

// newAPI sets up the gin engine, middleware and routes for the API.
// The server isn't started until [API.Serve] is called.
func newAPI(b *LikoBot, config *APIConfig) (*API, error) {
	r := gin.New()

	api := &API{
		config: config,
		engine: r,
		logger: slog.New(newLogHandler(config.LogLevel)).With(loggerNameKey, "api"),
	}
	api.handlers = &APIHandlers{b: b, logger: api.logger}

	tlsCfg, e := tlsConfig(config.SSL)
	if e != nil {
		return nil, fmt.Errorf("error loading SSL certs: %w", e)
	}

	api.httpServer = &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		TLSConfig:         tlsCfg,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	if b.config.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		r.Use(gin.Recovery())
	}
	r.Use(
		requestIDMiddleware(),
		ginLoggingMiddleware(),
	)

	corsConfig := config.CORS.GINConfig()
	switch {
	case len(corsConfig.AllowOrigins) > 0:
		r.Use(cors.New(corsConfig))
	case b.config.Development:
		corsConfig.AllowAllOrigins = true
		r.Use(cors.New(corsConfig))
	}

	r.GET(apiHealthCheck, api.handlers.healthCheck)

	if b.config.Development {
		ginPprof.Register(r, pprofPrefix)
	}

	g := r.Group(apiPrefix)
	g.GET(apiPathMethod, api.handlers.getMethod)
	g.GET(apiPathSearch, api.handlers.search)
	g.GET(apiPathLookups, api.handlers.getLookups)

	return api, nil
}

// Serve listens on the configured address, and serves until the server
// is shut down. TLS is used if a certificate is configured.
func (a *API) Serve(ctx context.Context) error {
	if a.listener != nil {
		return a.httpServer.Serve(a.listener)
	}
	listenCfg := &net.ListenConfig{}
	ln, e := listenCfg.Listen(ctx, a.config.ListenNetwork, a.config.Listen)
	if e != nil {
		return fmt.Errorf("error listening on %s: %w", a.config.Listen, e)
	}
	if a.httpServer.TLSConfig != nil {
		a.logger.InfoContext(ctx, "serving api with TLS", "listen", ln.Addr().String())
		return a.httpServer.ServeTLS(ln, "", "")
	}
	a.logger.WarnContext(ctx, "serving api without TLS", "listen", ln.Addr().String())
	a.listener = ln
	return a.httpServer.Serve(ln)
}

// APIHandlers contains the handlers for the various API endpoints.
type APIHandlers struct {
	b      *LikoBot
	logger *slog.Logger
}

// healthCheck reports whether the documentation is loaded, and whether
// the discord gateway is connected
func (h *APIHandlers) healthCheck(c *gin.Context) {
	rv := healthCheckResponse{
		DiscordGatewayConnected: h.b.discord.connected.Load(),
	}
	if !h.b.startedAt.IsZero() {
		rv.Uptime = time.Since(h.b.startedAt).Round(time.Second).String()
	}
	if lib := h.b.library.Load(); lib != nil {
		rv.Ready = true
		rv.Methods = lib.dataset.MethodCount()
		rv.Aliases = lib.index.Len()
	}
	c.JSON(http.StatusOK, rv)
}

// getMethod resolves the `name` path parameter like the method command,
// and returns the resolution along with the rendered card.
//
// Responses:
//   - 200 OK: A single method was selected
//   - 404 Not Found: No method, or more than one, matched
//   - 503 Service Unavailable: The documentation isn't loaded yet
func (h *APIHandlers) getMethod(c *gin.Context) {
	var q getMethodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	lib := h.b.library.Load()
	if lib == nil {
		c.JSON(http.StatusServiceUnavailable, httpError{Error: errLibraryNotLoaded.Error()})
		return
	}

	usage := docs.UsageUnselected
	if q.Usage != nil {
		usage = *q.Usage
	}
	lookup := &MethodLookup{Source: lookupSourceAPI, Usage: usage}

	ctx := WithLogger(c.Request.Context(), ginContextLogger(c))
	res, _, err := h.b.lookupMethod(ctx, lookup, c.Param("name"))
	if err != nil {
		ginReplyError(c, err.Error())
		return
	}

	rv := methodResponse{
		Query:   res.Query,
		Kind:    res.Kind.String(),
		Note:    res.Note(),
		Entry:   res.Entry,
		Longer:  res.Longer,
		Shorter: res.Shorter,
	}
	if !res.Found() {
		c.JSON(http.StatusNotFound, rv)
		return
	}
	card := lib.formatter.Format(res.Entry, usage)
	rv.Card = &card
	c.JSON(http.StatusOK, rv)
}

// search runs a full-text search over the documentation
func (h *APIHandlers) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	hits, _, err := h.b.searchMethods(c.Request.Context(), q.Query, q.Limit)
	if err != nil {
		if errors.Is(err, errLibraryNotLoaded) {
			c.JSON(http.StatusServiceUnavailable, httpError{Error: err.Error()})
			return
		}
		ginContextLogger(c).ErrorContext(c, "error searching", tint.Err(err))
		ginReplyError(c, "error searching")
		return
	}
	if hits == nil {
		hits = []docs.SearchHit{}
	}
	c.JSON(http.StatusOK, searchResponse{Query: q.Query, Hits: hits})
}

// getLookups returns recorded method lookups, newest first unless
// `order=asc` is given
func (h *APIHandlers) getLookups(c *gin.Context) {
	var pagination Pagination
	if err := c.ShouldBindQuery(&pagination); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: "invalid pagination"})
		return
	}
	if pagination.Order == "" {
		pagination.Order = Descending
	}
	if pagination.Limit == 0 {
		pagination.Limit = defaultLookupsLimit
	}

	if h.b.db == nil {
		c.JSON(http.StatusServiceUnavailable, httpError{Error: "database not ready"})
		return
	}

	lookups, err := recentMethodLookups(c.Request.Context(), h.b.db, pagination)
	if err != nil {
		ginContextLogger(c).ErrorContext(c, "error getting lookups", tint.Err(err))
		ginReplyError(c, "error getting lookups")
		return
	}
	if lookups == nil {
		lookups = []MethodLookup{}
	}
	c.JSON(http.StatusOK, lookups)
}

type getMethodQuery struct {
	Usage *int `form:"usage" binding:"omitempty,min=0"`
}

type searchQuery struct {
	Query string `form:"q" binding:"required,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// Pagination represents the pagination parameters for API requests.
type Pagination struct {
	Limit  int  `form:"limit" binding:"omitempty,min=1,max=100"`
	Order  Sort `form:"order" binding:"omitempty,oneof=asc desc"`
	Offset int  `form:"offset" binding:"omitempty,min=0"`
}

// Sort represents the sorting order for queries.
type Sort string

type healthCheckResponse struct {
	Ready                   bool   `json:"ready"`
	Methods                 int    `json:"methods"`
	Aliases                 int    `json:"aliases"`
	Uptime                  string `json:"uptime,omitempty"`
	DiscordGatewayConnected bool   `json:"discord_gateway_connected"`
}

type methodResponse struct {
	Query   string             `json:"query"`
	Kind    string             `json:"kind"`
	Note    string             `json:"note,omitempty"`
	Entry   *docs.IndexEntry   `json:"entry,omitempty"`
	Card    *docs.Card         `json:"card,omitempty"`
	Longer  []*docs.IndexEntry `json:"longer,omitempty"`
	Shorter []*docs.IndexEntry `json:"shorter,omitempty"`
}

type searchResponse struct {
	Query string           `json:"query"`
	Hits  []docs.SearchHit `json:"hits"`
}

// httpError represents an error message returned ot the client
type httpError struct {
	Error string `json:"error"`
}

// requestIDMiddleware sets a random request ID on the context and the
// response headers
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := generateRandomHexString(32)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(xRequestIDHeader, id)
		c.Header(xRequestIDHeader, id)
		c.Next()
	}
}

// ginContextLogger returns the slog.Logger from the given gin context,
// or, if it doesn't exist, creates a logger with request details included,
// and sets the logger in the context so the next call to ginContextLogger
// will return the new logger.
func ginContextLogger(c *gin.Context) *slog.Logger {
	var requestLogger *slog.Logger
	logger, ok := c.Get(string(loggerContextKey))
	if ok {
		requestLogger, ok = logger.(*slog.Logger)
		if ok {
			return requestLogger
		}
	}
	requestLogger = slog.Default()
	requestID, _ := c.Get(xRequestIDHeader)
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery
	if raw != "" {
		path = path + "?" + raw
	}

	requestLogger = requestLogger.With(
		slog.Group(
			"request",
			"method", c.Request.Method,
			"path", path,
			"remote_addr", c.Request.RemoteAddr,
			"remote_ip", c.RemoteIP(),
			"user_agent", c.Request.UserAgent(),
			"referer", c.Request.Referer(),
		),
		slog.Any(xRequestIDHeader, requestID),
	)
	c.Set(string(loggerContextKey), requestLogger)
	return requestLogger
}

// ginLoggingMiddleware returns a Gin middleware function for logging HTTP requests.
//
// It logs the request method, path, remote address, user agent, referer, and the duration
// of the request. If there are any errors, it logs them as well.
func ginLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLogger := ginContextLogger(c)
		c.Next()
		latency := time.Since(start)

		var errs []error
		for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
			errs = append(errs, *e)
		}
		if len(errs) > 0 {
			requestLogger.Error(
				fmt.Sprintf(
					"%s %s finished with errors",
					c.Request.Method,
					c.Request.URL,
				),
				"duration", latency,
				"errors", errs,
				slog.Group(
					"response",
					"status_code", c.Writer.Status(),
					"body_size", c.Writer.Size(),
				),
			)
		} else {
			requestLogger.Info(
				fmt.Sprintf("%s %s finished", c.Request.Method, c.Request.URL),
				"duration", latency,
				slog.Group(
					"response",
					"status_code", c.Writer.Status(),
					"body_size", c.Writer.Size(),
				),
			)
		}
	}
}

// ginReplyError sends a JSON response with a message,
// with HTTP status code 500, via the gin context.
func ginReplyError(c *gin.Context, err string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, httpError{Error: err})
}

func init() {
	structValidator.SetTagName("binding")
}
