package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flitsinc/agentd/internal/agenttools"
	"github.com/flitsinc/agentd/internal/ai"
	"github.com/flitsinc/agentd/internal/api"
	"github.com/flitsinc/agentd/internal/config"
	"github.com/flitsinc/agentd/internal/engine"
	"github.com/flitsinc/agentd/internal/memory"
	"github.com/flitsinc/agentd/internal/outbound"
	"github.com/flitsinc/agentd/internal/prompt"
	"github.com/flitsinc/agentd/internal/session"
	"github.com/flitsinc/agentd/internal/state"
	"github.com/flitsinc/agentd/internal/tasks"
	"github.com/flitsinc/agentd/internal/web"
)

func main() {
	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		log.Fatalf("create workspace: %v", err)
	}

	db, err := state.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := state.NewStore(db)
	tracker := tasks.NewTracker()

	queue := outbound.NewQueue()
	senders := map[string]outbound.Sender{}
	if cfg.FeishuWebhookURL != "" {
		senders["feishu"] = outbound.NewFeishuSender(cfg.FeishuWebhookURL)
	}
	var discord *outbound.DiscordSender
	if cfg.DiscordToken != "" {
		discord, err = outbound.NewDiscordSender(cfg.DiscordToken)
		if err != nil {
			log.Printf("discord disabled: %v", err)
		} else {
			senders["discord"] = discord
			defer discord.Close()
		}
	}
	dispatcher := outbound.NewDispatcher(queue, senders)
	tracker.Go("outbound-dispatch", func(ctx context.Context) {
		_ = dispatcher.Run(ctx)
	})

	registry := agenttools.NewRegistry()
	registry.Register("exec", agenttools.ExecTool(cfg.Workspace))
	registry.Register("send_message", agenttools.SendMessageTool(queue))

	var llmClient *ai.Client
	if cfg.LLMModel != "" && cfg.LLMAPIKey != "" {
		llmClient, err = ai.NewClient(ai.Config{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			APIKey:   cfg.LLMAPIKey,
		})
		if err != nil {
			log.Printf("LLM disabled: %v", err)
		}
	}

	// Without a summarizer the scheduler still augments and records; it
	// just never consolidates.
	var summarizer memory.Summarizer
	if llmClient != nil {
		summarizer = llmClient
	}
	scheduler := memory.NewScheduler(cfg.Workspace, store, summarizer, tracker)
	scheduler.Period = cfg.MemoryPeriod

	var turns session.Turns
	if llmClient != nil {
		loader := &prompt.Loader{Workspace: cfg.Workspace}
		turns = &engine.Runtime{
			Model:         llmClient.Model(),
			Tools:         registry,
			Memory:        scheduler,
			Store:         store,
			MaxIterations: cfg.MaxToolIterations,
			SystemPrompt:  loader.System,
		}
	} else {
		log.Printf("no LLM configured; chat endpoints will report not ready")
	}

	apiServer := &api.Server{
		Store:     store,
		Turns:     turns,
		Recorder:  scheduler,
		Tasks:     tracker,
		Heartbeat: cfg.HeartbeatInterval,
		StartedAt: time.Now(),
	}
	webServer := &web.Server{Dir: cfg.WebDir}

	apiHandler := apiServer.Handler()
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/ws/", apiHandler)
	mux.Handle("/v1/", apiHandler)
	mux.Handle("/", webServer.Handler())

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return serverCtx
		},
	}

	go func() {
		log.Printf("agentd listening on %s", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	serverCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	_ = httpServer.Close()

	if err := tracker.Shutdown(ctx); err != nil {
		log.Printf("background tasks shutdown: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
