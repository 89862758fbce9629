package gateway

import (
	"context"
	"time"

	"realtime-gateway/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Server wires the Connection Manager, Subscription Registry, Presence
// Tracker, Auth Controller and EventBus into Fiber routes, the way
// internal/auth/adapter/http wires its usecase into a router.
type Server struct {
	cfg       *Config
	manager   *Manager
	registry  *Registry
	presence  *Presence
	authctrl  *AuthController
	bus       *EventBus
	log       logger.Logger
	startedAt time.Time
}

// NewServer builds a fully-wired gateway Server around its external
// collaborators (the data service, schema resolver, and authentication
// service), constructing the Sanitizer, EventBus, Presence tracker,
// Registry, AuthController and Manager and binding them to each other.
func NewServer(
	cfg *Config,
	items ItemsService,
	meta MetaService,
	schemas SchemaResolver,
	resolver AccountabilityResolver,
	authSvc AuthenticationService,
	log logger.Logger,
) (*Server, error) {
	sanitizer, err := NewSanitizer(log)
	if err != nil {
		return nil, err
	}

	bus := NewEventBus()
	presence := NewPresence(bus, log)
	registry := NewRegistry(items, meta, schemas, resolver, sanitizer, cfg, log)
	authctrl := NewAuthController(cfg.AuthMode, resolver, authSvc, cfg, log)
	manager := NewManager(bus, registry, presence, authctrl, cfg, log)
	registry.bindManager(manager)

	bus.OnMutation(func(ctx context.Context, ev MutationEvent) {
		registry.Dispatch(ctx, ev)
	})

	return &Server{
		cfg:       cfg,
		manager:   manager,
		registry:  registry,
		presence:  presence,
		authctrl:  authctrl,
		bus:       bus,
		log:       log.WithComponent("gateway"),
		startedAt: time.Now(),
	}, nil
}

// WithRedisMirror attaches a cross-process presence broadcaster to the
// server's Presence tracker. Optional; callers that have no Redis
// connection configured simply never call this.
func (s *Server) WithRedisMirror(mirror *RedisMirror) *Server {
	s.presence.WithRedisMirror(mirror)
	return s
}

// RegisterRoutes mounts the websocket upgrade endpoint onto app under
// cfg.Path, and a health probe at /health.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use(cors.New())
	app.Use(requestid.New())

	group := app.Group(s.cfg.Path)
	group.Use(s.authctrl.UpgradeMiddleware())
	group.Get("/", websocket.New(s.handleUpgrade))

	app.Get("/health", s.handleHealth)
}

// handleUpgrade runs once per accepted connection. In strict mode the
// accountability was already resolved in UpgradeMiddleware and handed
// across the protocol switch via conn.Locals; in handshake mode it is
// resolved here from the connection's first frame; in public mode the
// connection starts with PublicEpoch.
func (s *Server) handleUpgrade(conn *websocket.Conn) {
	ctx := context.Background()
	remoteIP := conn.RemoteAddr().String()
	userAgent := conn.Headers("User-Agent")

	var epoch AuthEpoch
	switch s.cfg.AuthMode {
	case AuthModeStrict:
		if resolved, ok := conn.Locals(localsEpochKey).(AuthEpoch); ok {
			epoch = resolved
		} else {
			epoch = PublicEpoch()
		}
	case AuthModeHandshake:
		resolved, ok := s.authctrl.AdmitHandshake(ctx, conn)
		if !ok {
			_ = conn.Close()
			return
		}
		epoch = resolved
	case AuthModePublic:
		epoch = PublicEpoch()
	}

	s.manager.Accept(ctx, conn, epoch, remoteIP, userAgent)
}

// Stats reports point-in-time gateway health.
type Stats struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	LiveConnections int     `json:"live_connections"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(Stats{
		UptimeSeconds:   time.Since(s.startedAt).Seconds(),
		LiveConnections: s.manager.Count(),
	})
}
