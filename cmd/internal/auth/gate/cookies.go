package gate

import (
	"net/http"
	"strings"
	"time"

	"chatpad/cmd/internal/auth/session"
)

// Cookies sets, clears and reads the two credential cookies. Both are
// HttpOnly and carry the configured SameSite mode.
type Cookies struct {
	cfg session.CookieConfig
}

func NewCookies(cfg session.CookieConfig) *Cookies {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Cookies{cfg: cfg}
}

func (c *Cookies) SendAccessCredential(w http.ResponseWriter, tok string) {
	c.set(w, c.cfg.AccessName, tok, c.cfg.AccessMaxAge)
}

func (c *Cookies) SendRefreshCredential(w http.ResponseWriter, tok string) {
	c.set(w, c.cfg.RefreshName, tok, c.cfg.RefreshMaxAge)
}

func (c *Cookies) ClearAccessCredential(w http.ResponseWriter) { c.expire(w, c.cfg.AccessName) }

func (c *Cookies) ClearRefreshCredential(w http.ResponseWriter) { c.expire(w, c.cfg.RefreshName) }

func (c *Cookies) AccessCredential(r *http.Request) string { return read(r, c.cfg.AccessName) }

func (c *Cookies) RefreshCredential(r *http.Request) string { return read(r, c.cfg.RefreshName) }

func (c *Cookies) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func (c *Cookies) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func read(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}
