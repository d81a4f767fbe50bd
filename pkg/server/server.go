// Package server exposes the HTTP surface: the Twilio voice webhook,
// the media-stream WebSocket endpoint, and health/stats routes.
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/grottohq/voicebridge/internal/config"
	"github.com/grottohq/voicebridge/internal/log"
	"github.com/grottohq/voicebridge/pkg/bridge"
	"github.com/grottohq/voicebridge/pkg/session"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

// LiveDialer opens a fresh model session for one call.
type LiveDialer func(ctx context.Context) (bridge.LiveSession, error)

// Server routes Twilio traffic into per-call bridges.
type Server struct {
	app *fiber.App
	cfg *config.Config

	store     session.Store
	recorder  *session.Recorder
	extractor bridge.Extractor
	control   bridge.CallControl
	dial      LiveDialer
}

// New builds the fiber app and wires the routes.
func New(cfg *config.Config, store session.Store, recorder *session.Recorder,
	extractor bridge.Extractor, control bridge.CallControl, dial LiveDialer) *Server {

	s := &Server{
		cfg:       cfg,
		store:     store,
		recorder:  recorder,
		extractor: extractor,
		control:   control,
		dial:      dial,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/", s.handleHealth)
	app.Get("/health", s.handleHealth)
	app.Get("/stats", s.handleStats)
	app.Post("/webhook", s.handleWebhook)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:caller", websocket.New(s.handleStream))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "voicebridge",
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active_calls": s.store.ActiveCount(),
	})
}

// handleWebhook answers Twilio's incoming-call webhook with TwiML that
// greets the caller and connects the media stream to our WebSocket.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	from := c.FormValue("From")
	to := c.FormValue("To")

	if callSID == "" || from == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing CallSid or From")
	}
	log.Info("incoming call", "call_sid", callSID, "from", from, "to", to)

	s.store.GetOrCreate(from, callSID)

	twiml := twilio.StreamResponse(s.cfg.Greeting, twilio.WebSocketURL(s.cfg.PublicWSURL, from))
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.SendString(twiml)
}

// handleStream runs one call to completion on the upgraded WebSocket.
func (s *Server) handleStream(conn *websocket.Conn) {
	caller := conn.Params("caller")
	log.Info("media stream connected", "caller", caller)

	sess, ok := s.store.Get(caller)
	if !ok {
		// Stream arrived without a webhook first; start a bare session
		// under a synthetic SID so its record still gets a unique name.
		sess = s.store.GetOrCreate(caller, "local-"+uuid.NewString())
	}

	ctx := context.Background()
	live, err := s.dial(ctx)
	if err != nil {
		log.Error("model dial failed", "caller", caller, "error", err)
		s.store.Delete(caller)
		conn.Close()
		return
	}

	call := bridge.NewCall(bridge.Config{
		Conn:            conn,
		Live:            live,
		Session:         sess,
		Store:           s.store,
		Recorder:        s.recorder,
		Extractor:       s.extractor,
		Control:         s.control,
		HumanNumber:     s.cfg.HumanNumber,
		ExtractInterval: s.cfg.ExtractInterval,
	})
	call.Run(ctx)
	log.Info("media stream finished", "caller", caller)
}
