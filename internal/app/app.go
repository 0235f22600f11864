// Package app wires the stores, view models and transports together.
package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.mongodb.org/mongo-driver/mongo"

	"notesync/internal/auth"
	"notesync/internal/config"
	"notesync/internal/db"
	mcpserver "notesync/internal/mcp"
	"notesync/internal/notes"
	"notesync/internal/profile"
	"notesync/internal/reminder"
	"notesync/internal/syncvm"
	"notesync/internal/tasks"
	"notesync/internal/web"
)

// Backends are the stores the application runs on.
type Backends struct {
	Notes    syncvm.RemoteStore[notes.Note, notes.Fields]
	Tasks    syncvm.RemoteStore[tasks.Task, tasks.Fields]
	Identity auth.IdentityProvider
	Profiles profile.Store
	Local    *sql.DB
}

type App struct {
	Config    *config.Config
	Log       *slog.Logger
	Notes     *notes.Service
	Tasks     *tasks.Service
	Profiles  *profile.Service
	Gateway   *auth.Gateway
	Reminders *reminder.Scheduler

	local *sql.DB
	mongo *mongo.Database
}

// Open connects to MongoDB and the local cache and assembles the app.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	log.Info("connecting to MongoDB", "database", cfg.Database)
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	log.Info("connected to MongoDB")

	local, err := db.OpenLocal(cfg.LocalDB)
	if err != nil {
		db.Disconnect(ctx, database)
		return nil, err
	}

	noteRepo := notes.NewRemoteRepo(database)
	taskRepo := tasks.NewRemoteRepo(database)
	identity := auth.NewMongoIdentity(database)
	for name, ensure := range map[string]func(context.Context) error{
		"notes":    noteRepo.EnsureIndexes,
		"tasks":    taskRepo.EnsureIndexes,
		"accounts": identity.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn("failed to ensure indexes", "collection", name, "error", err)
		}
	}

	a := Assemble(cfg, Backends{
		Notes:    noteRepo,
		Tasks:    taskRepo,
		Identity: identity,
		Profiles: profile.NewRepo(database),
		Local:    local,
	}, log)
	a.mongo = database
	return a, nil
}

// Assemble builds the services over b. The app takes ownership of b.Local.
func Assemble(cfg *config.Config, b Backends, log *slog.Logger) *App {
	opts := []syncvm.Option{syncvm.WithPolicy(cfg.RefreshPolicy)}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn("jwt_secret not set, using a random secret; sessions end on restart")
	}

	reminders := reminder.NewScheduler(reminder.LogNotifier{Log: log}, log)
	profiles := profile.NewService(b.Profiles, log)

	return &App{
		Config:    cfg,
		Log:       log,
		Notes:     notes.NewService(b.Notes, notes.NewLocalRepo(b.Local), log, opts...),
		Tasks:     tasks.NewService(tasks.NewViewModel(b.Tasks, tasks.NewLocalRepo(b.Local), reminders, log, opts...)),
		Profiles:  profiles,
		Gateway:   auth.NewGateway(b.Identity, b.Profiles, auth.NewTokens(secret, cfg.TokenTTL), log),
		Reminders: reminders,
		local:     b.Local,
	}
}

// PurgeUser drops everything cached for ownerID.
func (a *App) PurgeUser(ctx context.Context, ownerID string) error {
	return errors.Join(
		a.Notes.Purge(ctx, ownerID),
		a.Tasks.Purge(ctx, ownerID),
	)
}

// Routes returns the HTTP handler serving the REST API, the web view and MCP.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	optional := func(next http.HandlerFunc) http.HandlerFunc { return a.Gateway.Middleware(next, false) }

	auth.NewHandler(a.Gateway, a.Log, a.PurgeUser).Register(mux)
	notes.NewHandler(a.Notes, a.Log).Register(mux, a.Gateway.Require)
	tasks.NewHandler(a.Tasks, a.Log).Register(mux, a.Gateway.Require)
	profile.NewHandler(a.Profiles, a.Log).Register(mux, a.Gateway.Require)
	web.NewHandler(a.Notes, a.Tasks, a.Log).Register(mux, optional)

	// MCP endpoint (HTTP transport)
	// MCP uses POST for requests and GET for SSE streams
	mcpHTTP := server.NewStreamableHTTPServer(
		mcpserver.NewServer(a.Notes, a.Tasks),
		server.WithHTTPContextFunc(mcpserver.HTTPContext(a.Gateway, auth.TokenFromRequest)),
	)
	mux.Handle("POST /mcp", mcpHTTP)
	mux.Handle("GET /mcp", mcpHTTP)
	mux.Handle("DELETE /mcp", mcpHTTP)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Close stops reminders and releases both databases.
func (a *App) Close(ctx context.Context) error {
	a.Reminders.Stop()
	err := a.local.Close()
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err = errors.Join(err, db.Disconnect(ctx, a.mongo))
	}
	return err
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}
