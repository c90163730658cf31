package handlers

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/cxusage/cxusage/internal/pricing"
	"github.com/cxusage/cxusage/internal/usage"
	"github.com/cxusage/cxusage/server/internal/auth"
	"github.com/cxusage/cxusage/server/internal/database"
)

const dashboardChartPoints = 72

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db         *database.DB
	sessionMgr *scs.SessionManager
	templates  *template.Template
	views      *ViewCache
}

// New creates a new Handler
func New(db *database.DB, sessionMgr *scs.SessionManager, templates *template.Template) *Handler {
	return &Handler{
		db:         db,
		sessionMgr: sessionMgr,
		templates:  templates,
		views:      NewViewCache(db, 2*time.Second),
	}
}

// Index handles the main page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionMgr.GetString(r.Context(), "userID")

	if userID == "" {
		h.templates.ExecuteTemplate(w, "index.html", map[string]interface{}{
			"Content": "auth",
		})
		return
	}

	user, err := h.db.GetUserByID(userID)
	if err != nil || user == nil {
		h.sessionMgr.Destroy(r.Context())
		h.templates.ExecuteTemplate(w, "index.html", map[string]interface{}{
			"Content": "auth",
		})
		return
	}

	h.templates.ExecuteTemplate(w, "index.html", map[string]interface{}{
		"Content":   "dashboard",
		"User":      user,
		"Dashboard": h.dashboardData(user, r),
	})
}

// PartialAuth returns the auth form fragment
func (h *Handler) PartialAuth(w http.ResponseWriter, r *http.Request) {
	h.templates.ExecuteTemplate(w, "auth.html", nil)
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.renderError(w, "Username and password are required")
		return
	}

	user, err := h.db.GetUserByUsername(username)
	if err != nil {
		h.renderError(w, "An error occurred")
		return
	}

	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.renderError(w, "Invalid username or password")
		return
	}

	h.sessionMgr.Put(r.Context(), "userID", user.ID)
	h.renderDashboard(w, r, user)
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.renderError(w, "Username and password are required")
		return
	}

	if len(username) < 3 {
		h.renderError(w, "Username must be at least 3 characters")
		return
	}

	if len(password) < 8 {
		h.renderError(w, "Password must be at least 8 characters")
		return
	}

	existing, _ := h.db.GetUserByUsername(username)
	if existing != nil {
		h.renderError(w, "Username already taken")
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		h.renderError(w, "An error occurred")
		return
	}

	userID, err := auth.GenerateID()
	if err != nil {
		h.renderError(w, "An error occurred")
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		h.renderError(w, "An error occurred")
		return
	}

	user := &database.User{
		ID:           userID,
		Username:     username,
		PasswordHash: passwordHash,
		APIKey:       apiKey,
		CreatedAt:    time.Now(),
	}

	if err := h.db.CreateUser(user); err != nil {
		h.renderError(w, "Failed to create account")
		return
	}

	h.sessionMgr.Put(r.Context(), "userID", user.ID)
	h.renderDashboard(w, r, user)
}

// Logout handles user logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.Destroy(r.Context())
	h.templates.ExecuteTemplate(w, "auth.html", nil)
}

// PartialDashboard returns the dashboard fragment
func (h *Handler) PartialDashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		h.templates.ExecuteTemplate(w, "auth.html", nil)
		return
	}
	h.templates.ExecuteTemplate(w, "dashboard.html", map[string]interface{}{
		"User":      user,
		"Dashboard": h.dashboardData(user, r),
	})
}

// PartialUsageTable returns the usage table fragment for the requested
// date window.
func (h *Handler) PartialUsageTable(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.templates.ExecuteTemplate(w, "usage-table.html", h.dashboardData(user, r))
}

// DayRow is one rendered table row.
type DayRow struct {
	Date      string
	Input     int64
	Output    int64
	Reasoning int64
	Cached    int64
	Total     int64
}

// ModelRow is one per-model summary row.
type ModelRow struct {
	Model  string
	Tokens pricing.Breakdown
	Cost   *float64
}

// ChartBar is one pre-scaled activity bar. Pct is the height relative
// to the busiest bucket, 0-100.
type ChartBar struct {
	Label string
	Total int64
	Pct   int
}

// DashboardData carries everything the dashboard templates render.
type DashboardData struct {
	Empty   bool
	Stats   usage.Stats
	Since   string
	Until   string
	Days    []DayRow
	Models  []ModelRow
	Chart   []ChartBar
	Clients []database.Client
}

// dashboardData merges the user's client datasets and derives the
// requested view. Newest days first in the table.
func (h *Handler) dashboardData(user *database.User, r *http.Request) DashboardData {
	data := DashboardData{Empty: true}
	data.Clients, _ = h.db.ListClients(user.ID)

	merged, err := h.views.Get(user.ID)
	if err != nil || merged == nil {
		return data
	}
	data.Empty = false

	since := r.URL.Query().Get("since")
	until := r.URL.Query().Get("until")
	labels := merged.Daily.Labels

	var view usage.RangedView
	if since == "" && until == "" {
		view = usage.ResolveAll(labels)
	} else {
		if since == "" {
			since = labels[0]
		}
		if until == "" {
			until = labels[len(labels)-1]
		}
		view = usage.ResolveRange(labels, since, until)
	}
	data.Since = view.Start
	data.Until = view.End
	data.Stats = usage.ComputeStats(merged, view)

	for i := view.EndIndex; i >= view.StartIndex; i-- {
		data.Days = append(data.Days, DayRow{
			Date:      merged.Daily.Labels[i],
			Input:     merged.Daily.Input[i],
			Output:    merged.Daily.Output[i],
			Reasoning: merged.Daily.Reasoning[i],
			Cached:    merged.Daily.Cached[i],
			Total:     merged.Daily.Total[i],
		})
	}

	totals := merged.ModelTotals(view)
	book := merged.Book()
	for model, rec := range totals {
		var cost *float64
		if price, ok := book.Resolve(model); ok {
			cost = pricing.CostUSD(rec, &price)
		}
		data.Models = append(data.Models, ModelRow{Model: model, Tokens: rec, Cost: cost})
	}
	sort.Slice(data.Models, func(i, j int) bool {
		if data.Models[i].Tokens.TotalTokens != data.Models[j].Tokens.TotalTokens {
			return data.Models[i].Tokens.TotalTokens > data.Models[j].Tokens.TotalTokens
		}
		return data.Models[i].Model < data.Models[j].Model
	})

	data.Chart = chartBars(usage.CompressPoints(usage.BuildHourlyPoints(merged, view), dashboardChartPoints))
	return data
}

// chartBars scales chart points to percentage heights for the template.
func chartBars(points []usage.Point) []ChartBar {
	var max int64
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
	}
	if max == 0 {
		return nil
	}

	bars := make([]ChartBar, len(points))
	for i, p := range points {
		bars[i] = ChartBar{
			Label: p.Label,
			Total: p.Value,
			Pct:   int(p.Value * 100 / max),
		}
	}
	return bars
}

// SyncResponse represents the sync API response
type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Days    int    `json:"days,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APISync accepts a full dataset export and replaces the client's
// previous upload. Idempotent: re-syncing the same machine never
// double counts.
func (h *Handler) APISync(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		h.jsonError(w, "client_id is required", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	agg, err := usage.DecodeImport(body)
	if err != nil {
		h.jsonError(w, "Invalid dataset", http.StatusBadRequest)
		return
	}

	clientName := clientID
	if agg.Meta != nil && agg.Meta.Hostname != "" {
		clientName = agg.Meta.Hostname
	}
	if _, err := h.db.GetOrCreateClient(user.ID, clientID, clientName); err != nil {
		h.jsonError(w, "Failed to create client", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	ds := &database.Dataset{
		UserID:     user.ID,
		ClientID:   clientID,
		Document:   body,
		Days:       len(agg.Daily.Labels),
		RangeStart: agg.Range.Start,
		RangeEnd:   agg.Range.End,
		UpdatedAt:  now,
	}
	if err := h.db.SaveDataset(ds); err != nil {
		h.jsonError(w, "Failed to store dataset", http.StatusInternalServerError)
		return
	}

	h.db.UpdateClientLastSync(clientID, now)
	h.views.Invalidate(user.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SyncResponse{
		Success: true,
		Message: "Sync completed",
		Days:    ds.Days,
	})
}

// SyncStatusResponse represents the sync status response
type SyncStatusResponse struct {
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// APISyncStatus returns the sync status for a client
func (h *Handler) APISyncStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		h.jsonError(w, "client_id is required", http.StatusBadRequest)
		return
	}

	lastSync, err := h.db.GetClientSyncStatus(user.ID, clientID)
	if err != nil {
		h.jsonError(w, "Failed to get sync status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SyncStatusResponse{
		LastSyncAt: lastSync,
	})
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, user *database.User) {
	// Retarget to #content for successful auth (forms target error div by default)
	w.Header().Set("HX-Retarget", "#content")
	w.Header().Set("HX-Reswap", "innerHTML")

	h.templates.ExecuteTemplate(w, "dashboard.html", map[string]interface{}{
		"User":      user,
		"Dashboard": h.dashboardData(user, r),
	})
}

func (h *Handler) renderError(w http.ResponseWriter, message string) {
	h.templates.ExecuteTemplate(w, "error.html", map[string]interface{}{
		"Error": message,
	})
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Health handles the health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
