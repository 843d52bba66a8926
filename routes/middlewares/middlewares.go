package middlewares

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/pmdraft/httpx"
	"github.com/mbolis/pmdraft/log"
)

// Inspector checks for a valid OAuth token carrying the 'inspector' or
// 'admin' role.
func Inspector(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), hasRole("inspector", "admin")).Handler(next)
	}
}

func hasRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

			for _, role := range strings.Split(claims["roles"], ",") {
				for _, a := range allowed {
					if strings.TrimSpace(role) == a {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "auth.role")
		})
	}
}

// CookieAuth lets GET requests authenticate with the access token cookie, so
// that photos can be loaded by <img> tags. An expired access token is renewed
// from the refresh token cookie.
func CookieAuth(bearerServer *oauth.BearerServer) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie(httpx.AccessCookie)
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				httpx.LogInternalError(w, "auth.cookie.access", err)
				return
			}
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
			}

			refreshToken, err := r.Cookie(httpx.RefreshCookie)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					httpx.LogInternalError(w, "auth.cookie.refresh", err)
					return
				}
				httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.cookie.missing")
				return
			}

			resp, err := httpx.GrantTokens(bearerServer, url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {refreshToken.Value},
			})
			if err != nil {
				httpx.LogInternalError(w, "auth.cookie.new_request", err)
				return
			}
			if resp.Status() == http.StatusUnauthorized {
				httpx.ClearTokenCookies(w)
				httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.cookie.refresh_rejected")
				return
			}
			if resp.Status() != http.StatusOK {
				httpx.LogStatus(w, resp.Status(), log.WarnLevel, "auth.cookie.refresh")
				return
			}

			tokens, err := httpx.TokensOf(resp)
			if err != nil {
				httpx.LogInternalError(w, "auth.cookie.decode", err)
				return
			}
			httpx.SetTokenCookies(w, tokens)

			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}
