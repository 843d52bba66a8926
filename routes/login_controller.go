package routes

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/httpx"
	"github.com/mbolis/pmdraft/log"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login trades basic auth credentials for a token pair. The pair is sent in
// the body and also set as cookies for CookieAuth.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		resp, err := httpx.GrantTokens(app.BearerServer, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
		if err != nil {
			httpx.LogInternalError(w, "login.new_request", err)
			return
		}
		grantResponse(w, resp, "login")
	}
}

// Refresh takes the refresh token from an "Authorization: Refresh <token>"
// header, falling back to the refresh token cookie.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if match := reRefresh.FindStringSubmatch(r.Header.Get("authorization")); len(match) > 0 {
			token = match[1]
		} else if c, err := r.Cookie(httpx.RefreshCookie); err == nil {
			token = c.Value
		} else if !errors.Is(err, http.ErrNoCookie) {
			httpx.LogInternalError(w, "refresh.cookie", err)
			return
		}
		if token == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		resp, err := httpx.GrantTokens(app.BearerServer, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		})
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}
		grantResponse(w, resp, "refresh")
	}
}

func grantResponse(w http.ResponseWriter, resp httpx.ResponseBuffer, code string) {
	if resp.Status() == http.StatusOK {
		tokens, err := httpx.TokensOf(resp)
		if err != nil {
			httpx.LogInternalError(w, code+".decode", err)
			return
		}
		httpx.SetTokenCookies(w, tokens)
	} else {
		log.Debugf("%s.grant: status %d", code, resp.Status())
	}
	resp.Flush(w)
}
