package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/cas-server/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cas-server/internal/auth"
	"github.com/lorrc/cas-server/internal/core/services"
)

// SessionHandler implements /login and /logout: the only two CAS endpoints
// that speak to a browser rather than a service.
type SessionHandler struct {
	authenticator *services.Authenticator
	sso           *services.SSOSessionService
	tokens        *auth.TokenManager
	cookieName    string
	secureCookie  bool
	logger        *slog.Logger
}

func NewSessionHandler(authenticator *services.Authenticator, sso *services.SSOSessionService, tokens *auth.TokenManager, cookieName string, secureCookie bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		authenticator: authenticator,
		sso:           sso,
		tokens:        tokens,
		cookieName:    cookieName,
		secureCookie:  secureCookie,
		logger:        logger,
	}
}

func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.HandleLogin)
	r.Post("/login", h.HandleLogin)
	r.Get("/logout", h.HandleLogout)
}

func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleLoginForm(w, r)
	case http.MethodPost:
		h.handleLoginSubmit(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleLoginForm either renews an existing SSO session (if the browser
// already carries a live CASTGC cookie) or renders the credential form.
func (h *SessionHandler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")

	if claims, ok := middleware.SessionFromContext(r.Context()); ok {
		tgt, err := h.sso.ResumeSession(r.Context(), claims.TicketGrantingTicket)
		if err == nil {
			if service == "" {
				renderLoginPage(w, loginPageData{AlreadyLoggedIn: true, Principal: tgt.Principal})
				return
			}
			st, err := h.sso.IssueServiceTicket(r.Context(), tgt, service)
			if err == nil {
				redirectWithTicket(w, r, service, st.ID)
				return
			}
		}
	}

	renderLoginPage(w, loginPageData{Service: service})
}

func (h *SessionHandler) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	service := r.FormValue("service")

	tgt, err := h.authenticator.Login(r.Context(), username, password)
	if err != nil {
		renderLoginPage(w, loginPageData{Service: service, Error: "Invalid username or password."})
		return
	}

	token, err := h.tokens.GenerateToken(tgt.ID, tgt.Principal)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to sign session token", slog.String("error", err.Error()))
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  tgt.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if service == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	st, err := h.sso.IssueServiceTicket(r.Context(), tgt, service)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to issue service ticket after login", slog.String("error", err.Error()))
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	redirectWithTicket(w, r, service, st.ID)
}

func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if claims, ok := middleware.SessionFromContext(r.Context()); ok {
		if err := h.sso.Logout(r.Context(), claims.TicketGrantingTicket); err != nil && h.logger != nil {
			h.logger.Warn("logout failed to invalidate ticket chain", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if service := r.URL.Query().Get("service"); service != "" {
		http.Redirect(w, r, service, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// redirectWithTicket appends the minted ticket id to the service URL's
// existing query string, preserving whatever the service already supplied.
func redirectWithTicket(w http.ResponseWriter, r *http.Request, service, ticketID string) {
	u, err := url.Parse(service)
	if err != nil {
		http.Error(w, "invalid service url", http.StatusBadRequest)
		return
	}
	q := u.Query()
	q.Set("ticket", ticketID)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

type loginPageData struct {
	Service         string
	Error           string
	AlreadyLoggedIn bool
	Principal       string
}

// loginPageTemplate is intentionally minimal: the credential form is the
// one piece of CAS that faces a browser rather than a service, and
// rendering it is not where this server's complexity lives.
var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>CAS Login</title></head>
<body>
{{if .AlreadyLoggedIn}}
<p>You are logged in as {{.Principal}}.</p>
{{else}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="POST" action="/login">
<input type="hidden" name="service" value="{{.Service}}">
<label>Username <input type="text" name="username"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Login</button>
</form>
{{end}}
</body>
</html>`))

func renderLoginPage(w http.ResponseWriter, data loginPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = loginPageTemplate.Execute(w, data)
}
