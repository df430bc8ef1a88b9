// Package web serves the HTML surface of the rewards application.
package web

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tkhr/ecopoints/internal/models"
	"github.com/tkhr/ecopoints/internal/ranking"
	"github.com/tkhr/ecopoints/internal/session"
	"github.com/tkhr/ecopoints/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"formatTime": func(ns int64) string {
		return time.Unix(0, ns).Format("Jan 2, 2006 15:04")
	},
}).ParseFS(templatesFS, "templates/*.html"))

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store    storage.Store
	sessions *session.Manager
}

// New creates a Handler backed by the given store and session manager.
func New(store storage.Store, sessions *session.Manager) *Handler {
	return &Handler{store: store, sessions: sessions}
}

// Routes returns the full route table for the application.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.authPage)
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /logout", h.logout)
	mux.HandleFunc("GET /dashboard", h.dashboard)
	mux.HandleFunc("POST /buy", h.buy)
	mux.HandleFunc("POST /recycle", h.recycle)
	return mux
}

// authView is the template data for the entry page.
type authView struct {
	LoginError string
	ActiveTab  string
}

// dashboardView is the template data for the dashboard page.
type dashboardView struct {
	User         *models.User
	Items        []*models.Item
	Transactions []*models.Transaction
	TopThree     []*models.User
	Rank         int
}

// currentUser resolves the session cookie to a user.
// A nil user with a nil error means the request is anonymous.
func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	externalID := h.sessions.ExternalID(r)
	if externalID == "" {
		return nil, nil
	}
	return h.store.GetUserByExternalID(r.Context(), externalID)
}

// render writes a template with the given status, logging render failures.
func render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Template render failed", "template", name, "error", err)
	}
}

// authPage shows the signup/login entry view, or sends signed-in users
// straight to their dashboard.
func (h *Handler) authPage(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	render(w, http.StatusOK, "auth.html", authView{ActiveTab: "signup"})
}

// signup registers a new user and starts their session.
func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	externalID := r.FormValue("user_id")

	user := &models.User{ExternalID: externalID, Name: name}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrInvalidUserID) || errors.Is(err, storage.ErrDuplicateUser) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Signup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.startSession(w, r, user)
}

// login starts a session for an existing user. Failures render inline on the
// entry page rather than a bare error page.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	externalID := r.FormValue("user_id")

	if !models.ValidExternalID(externalID) {
		render(w, http.StatusBadRequest, "auth.html", authView{
			LoginError: "Invalid userID. Please enter exactly 9 digits.",
			ActiveTab:  "login",
		})
		return
	}

	user, err := h.store.GetUserByExternalID(r.Context(), externalID)
	if err != nil {
		slog.Error("Login lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		render(w, http.StatusNotFound, "auth.html", authView{
			LoginError: "User not found. Please check your userID or sign up.",
			ActiveTab:  "login",
		})
		return
	}

	h.startSession(w, r, user)
}

// startSession issues the session cookie and sends the user to the dashboard.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := h.sessions.Issue(user.ExternalID)
	if err != nil {
		slog.Error("Failed to issue session", "user_id", user.ExternalID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// logout clears the session cookie and returns to the entry page.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// dashboard renders the signed-in view: balance, catalog, transaction
// history, top-3 leaderboard and the user's own rank.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	ctx := r.Context()

	items, err := h.store.ListItems(ctx)
	if err != nil {
		slog.Error("Failed to list items", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	transactions, err := h.store.ListTransactions(ctx, user.ID)
	if err != nil {
		slog.Error("Failed to list transactions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	users, err := h.store.ListUsersByRank(ctx)
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	render(w, http.StatusOK, "dashboard.html", dashboardView{
		User:         user,
		Items:        items,
		Transactions: transactions,
		TopThree:     ranking.TopN(users, 3),
		Rank:         ranking.RankOf(user, users),
	})
}

// buy spends points on a catalog item.
func (h *Handler) buy(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	itemName := r.FormValue("item_name")
	if _, err := h.store.Purchase(r.Context(), user.ID, itemName); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) || errors.Is(err, storage.ErrInsufficientBalance) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Purchase failed", "user_id", user.ExternalID, "item", itemName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// recycle credits points for recycled material.
func (h *Handler) recycle(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	points, err := strconv.ParseInt(r.FormValue("points"), 10, 64)
	if err != nil {
		http.Error(w, "points must be a whole number", http.StatusBadRequest)
		return
	}

	if _, err := h.store.Recycle(r.Context(), user.ID, points); err != nil {
		if errors.Is(err, storage.ErrNonPositivePoints) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Recycle failed", "user_id", user.ExternalID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
