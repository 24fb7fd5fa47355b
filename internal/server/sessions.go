package server

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	scouterrs "github.com/engineroomai/scout/internal/errors"
	"github.com/engineroomai/scout/internal/serverutil"
)

const sessionCookieName = "scout_session"

// Describes the sessionState persisted to the dashboard cookie.
type sessionState struct {
	Authenticated bool
}

// Fetches the current session tied to the request.
func session(r *http.Request, secureCookie *securecookie.SecureCookie) sessionState {
	cookie, err := r.Cookie(sessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sessionState{}
	}
	if err != nil {
		slog.Error("error fetching cookie", "err", err)
		return sessionState{}
	}

	value := sessionState{}
	if err := secureCookie.Decode(sessionCookieName, cookie.Value, &value); err != nil {
		slog.Error("error decoding cookie", "err", err)
		return sessionState{}
	}

	return value
}

// Sets the session on the request.
func setSession(w http.ResponseWriter, secureCookie *securecookie.SecureCookie, https bool, sess sessionState) {
	encoded, err := secureCookie.Encode(sessionCookieName, sess)
	if err != nil {
		slog.Error("error encoding cookie", "err", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   https,
		HttpOnly: true,
	})
}

func requireSessionMiddleware(sc *securecookie.SecureCookie) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session(r, sc)
			if !state.Authenticated {
				http.Error(w, "Unauthenticated", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (l loginRequest) Validate() error {
	if l.Password == "" {
		return errors.New("password is required")
	}

	return nil
}

// postLogin starts a dashboard session when the configured password matches.
func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[loginRequest](r.Body)
	if err != nil {
		return scouterrs.E(err, http.StatusBadRequest)
	}

	if subtle.ConstantTimeCompare([]byte(body.Password), []byte(s.password)) != 1 {
		return scouterrs.E("wrong password", http.StatusUnauthorized)
	}

	setSession(w, s.secureCookie, s.httpsCookies, sessionState{Authenticated: true})

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getLogout(w http.ResponseWriter, r *http.Request) error {
	setSession(w, s.secureCookie, s.httpsCookies, sessionState{})

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
