package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/oauth"
	"github.com/goccy/go-json"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

type Tokens struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    float64 `json:"expires_in"`
}

// GrantTokens runs a token grant against the bearer server and buffers its
// answer. form carries grant_type and the grant's own fields.
func GrantTokens(bearerServer *oauth.BearerServer, form url.Values) (ResponseBuffer, error) {
	body := form.Encode()
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := NewResponseBuffer()
	bearerServer.UserCredentials(resp, req)
	return resp, nil
}

// TokensOf decodes a successful grant answer.
func TokensOf(resp ResponseBuffer) (t Tokens, err error) {
	err = json.Unmarshal(resp.Body(), &t)
	return
}

func SetTokenCookies(w http.ResponseWriter, t Tokens) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessCookie,
		Value:    t.AccessToken,
		MaxAge:   int(t.ExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     RefreshCookie,
		Value:    t.RefreshToken,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{Path: "/", Name: name, MaxAge: -1})
	}
}
