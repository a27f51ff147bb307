// Package gateway is the HTTP face of the platform: Telegram webhook
// ingress for the settings bot and every project bot, plus the admin
// endpoints.
//
// Webhook handlers always answer 200. A non-2xx makes Telegram retry the
// same update, and a failed update is never worth replaying.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/botkit"
	"multibot/internal/service"
)

// Gateway routes HTTP traffic to bot runtimes and admin services
type Gateway struct {
	settings *botkit.Runtime
	registry *botkit.Registry
	projects *service.ProjectService
	stats    *service.StatsService
	billing  *service.BillingService
	logger   *zap.Logger
}

// New creates a gateway
func New(
	settings *botkit.Runtime,
	registry *botkit.Registry,
	projects *service.ProjectService,
	stats *service.StatsService,
	billing *service.BillingService,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		settings: settings,
		registry: registry,
		projects: projects,
		stats:    stats,
		billing:  billing,
		logger:   logger,
	}
}

// Router builds the chi router with all routes attached
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/", g.handleHealth)
	r.Get("/stats", g.handleStats)
	r.Get("/feedbacks", g.handleFeedbacks)
	r.Post("/webhook/settings", g.handleSettingsWebhook)
	r.Post("/webhook/{projectID}", g.handleProjectWebhook)

	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (g *Gateway) handleSettingsWebhook(w http.ResponseWriter, r *http.Request) {
	update, ok := g.decodeUpdate(w, r)
	if !ok {
		return
	}

	go func() {
		if err := g.settings.HandleUpdate(update); err != nil {
			g.logger.Error("settings update failed", zap.Error(err))
		}
	}()

	writeJSON(w, map[string]string{"status": "ok"})
}

func (g *Gateway) handleProjectWebhook(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	update, ok := g.decodeUpdate(w, r)
	if !ok {
		return
	}

	project, err := g.projects.Get(projectID)
	if err != nil {
		g.logger.Error("project lookup failed", zap.String("project_id", projectID), zap.Error(err))
		writeJSON(w, map[string]string{"status": "error"})
		return
	}
	if project == nil {
		// stale webhook of a deleted project; acknowledge so Telegram
		// stops retrying
		writeJSON(w, map[string]string{"status": "not_found"})
		return
	}

	runtime, err := g.registry.Resolve(project.Token)
	if err != nil {
		g.logger.Error("runtime resolution failed", zap.String("project_id", projectID), zap.Error(err))
		writeJSON(w, map[string]string{"status": "error"})
		return
	}

	go func() {
		if err := runtime.HandleUpdate(update); err != nil {
			g.logger.Error("project update failed", zap.String("project_id", projectID), zap.Error(err))
		}
	}()

	writeJSON(w, map[string]string{"status": "ok"})
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := g.stats.Collect()
	if err != nil {
		g.logger.Error("stats collection failed", zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (g *Gateway) handleFeedbacks(w http.ResponseWriter, r *http.Request) {
	feedbacks, err := g.billing.GetFeedbacks()
	if err != nil {
		g.logger.Error("feedback listing failed", zap.Error(err))
		http.Error(w, "feedbacks unavailable", http.StatusInternalServerError)
		return
	}

	type entry struct {
		TelegramID int64  `json:"telegram_id"`
		Rating     int    `json:"rating"`
		Text       string `json:"text"`
		CreatedAt  string `json:"created_at"`
	}
	out := make([]entry, 0, len(feedbacks))
	for _, f := range feedbacks {
		out = append(out, entry{
			TelegramID: f.TelegramID,
			Rating:     f.Rating,
			Text:       f.Text,
			CreatedAt:  f.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	writeJSON(w, out)
}

// decodeUpdate parses the webhook body; malformed bodies are acknowledged
// with 200 so Telegram does not retry them
func (g *Gateway) decodeUpdate(w http.ResponseWriter, r *http.Request) (tele.Update, bool) {
	var update tele.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		g.logger.Warn("malformed webhook body", zap.Error(err))
		writeJSON(w, map[string]string{"status": "bad_update"})
		return update, false
	}
	return update, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
