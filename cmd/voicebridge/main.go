// voicebridge: real-time voice agent bridging Twilio phone calls to
// Gemini Live for a car dealership.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grottohq/voicebridge/internal/config"
	"github.com/grottohq/voicebridge/internal/log"
	"github.com/grottohq/voicebridge/pkg/bridge"
	"github.com/grottohq/voicebridge/pkg/gemini"
	"github.com/grottohq/voicebridge/pkg/server"
	"github.com/grottohq/voicebridge/pkg/session"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Path to YAML config file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("📞 voicebridge v" + version)
	fmt.Println("   Twilio <-> Gemini Live voice agent")
	fmt.Println()

	auth := gemini.Auth{
		APIKey:  cfg.GoogleAPIKey,
		Project: cfg.VertexProject,
		Region:  cfg.VertexRegion,
	}

	store := session.NewMemoryStore()
	recorder := session.NewRecorder(cfg.ProfilesDir)
	extractor := gemini.NewExtractor(auth, cfg.ExtractModel)
	control := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)

	dial := func(ctx context.Context) (bridge.LiveSession, error) {
		return gemini.Dial(ctx, gemini.LiveConfig{
			Auth:         auth,
			Model:        cfg.Model,
			SystemPrompt: bridge.SystemPrompt,
			Tools:        bridge.ToolDeclarations(),
			Voice:        cfg.Voice,
		})
	}

	srv := server.New(cfg, store, recorder, extractor, control, dial)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info("listening", "addr", addr, "vertex", cfg.UseVertex())
		if err := srv.Listen(addr); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", "active_calls", store.ActiveCount())
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
