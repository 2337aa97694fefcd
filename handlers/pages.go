package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/middleware"
)

// Pages are server-rendered placeholders. The web UI owns the real screens;
// these only prove the gate's redirects and headers end to end.

const layout = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} · SkyFleet</title></head>
<body>
<header>
{{if .Email}}<span class="who">{{.Email}} ({{.Role}}{{if .PilotID}}, {{.PilotID}}{{end}})</span> <a href="/logout">Log out</a>{{end}}
</header>
<main>
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .LoginForm}}
<form method="post" action="/login">
<input type="hidden" name="next" value="{{.Next}}">
<label>ID token <input type="password" name="idToken" autocomplete="off"></label>
<button type="submit">Sign in</button>
</form>
{{end}}
</main>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Parse(layout))

type pageData struct {
	Title     string
	Message   string
	Email     string
	Role      string
	PilotID   string
	LoginForm bool
	Next      string
}

// pageFromHeaders fills the identity section from the gate's headers
func pageFromHeaders(r *http.Request, title string) pageData {
	return pageData{
		Title:   title,
		Email:   r.Header.Get(middleware.HeaderUserEmail),
		Role:    r.Header.Get(middleware.HeaderUserRole),
		PilotID: r.Header.Get(middleware.HeaderUserPilotID),
	}
}

func renderPage(w http.ResponseWriter, status int, data pageData, logger *zap.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("failed to render page", zap.String("title", data.Title), zap.Error(err))
	}
}

// PageHandler renders a placeholder for a protected page
func PageHandler(deps *app.Dependencies, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, http.StatusOK, pageFromHeaders(r, title), deps.Logger)
	}
}

// LoginPageHandler handles GET /login
func LoginPageHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageFromHeaders(r, "Sign in")
		data.LoginForm = true
		data.Next = safeNext(r.URL.Query().Get("next"))
		renderPage(w, http.StatusOK, data, deps.Logger)
	}
}

// SessionLoginHandler handles POST /login. It verifies a provider ID token
// and stores it in the session cookie; no tokens are issued here.
func SessionLoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeLoginFailure(w, r, deps, "Invalid sign-in request")
			return
		}
		token := strings.TrimSpace(r.PostForm.Get("idToken"))
		if token == "" {
			writeLoginFailure(w, r, deps, "An ID token is required")
			return
		}

		identity, err := deps.Resolver.Resolve(r.Context(), token)
		if err != nil {
			deps.Logger.Info("sign-in rejected", zap.Error(err))
			writeLoginFailure(w, r, deps, "Invalid or expired token")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     deps.Config.Auth.CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   deps.Config.IsProduction(),
			SameSite: http.SameSiteLaxMode,
		})
		deps.Logger.Info("session started",
			zap.String("uid", identity.SubjectID),
			zap.String("role", string(identity.Role)))
		http.Redirect(w, r, safeNext(r.PostForm.Get("next")), http.StatusFound)
	}
}

func writeLoginFailure(w http.ResponseWriter, r *http.Request, deps *app.Dependencies, message string) {
	data := pageFromHeaders(r, "Sign in")
	data.Message = message
	data.LoginForm = true
	data.Next = safeNext(r.PostForm.Get("next"))
	renderPage(w, http.StatusUnauthorized, data, deps.Logger)
}

// LogoutHandler handles GET /logout
func LogoutHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.ClearCredentialCookie(w, deps.Config.Auth.CookieName)
		http.Redirect(w, r, deps.Config.Auth.LoginPath, http.StatusFound)
	}
}

// AccessDeniedHandler handles GET /access-denied
func AccessDeniedHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageFromHeaders(r, "Access denied")
		data.Message = "You do not have permission to view that page."
		renderPage(w, http.StatusForbidden, data, deps.Logger)
	}
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/dashboard"
	}
	return next
}
