package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatpad/cmd/internal/auth/session"
)

func TestCookies_SendAndClear(t *testing.T) {
	c := NewCookies(session.DefaultConfig().Cookies)

	rec := httptest.NewRecorder()
	c.SendAccessCredential(rec, "acc")
	c.SendRefreshCredential(rec, "ref")

	got := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		got[ck.Name] = ck
	}

	want := map[string]struct {
		value  string
		maxAge int
	}{
		"accessToken":  {"acc", 600},
		"refreshToken": {"ref", 1209600},
	}
	for name, w := range want {
		ck := got[name]
		if ck == nil {
			t.Fatalf("cookie %s not set", name)
		}
		if ck.Value != w.value || ck.MaxAge != w.maxAge {
			t.Fatalf("%s = %q max-age %d, want %q / %d", name, ck.Value, ck.MaxAge, w.value, w.maxAge)
		}
		if !ck.HttpOnly || ck.SameSite != http.SameSiteStrictMode || ck.Path != "/" {
			t.Fatalf("%s attributes: %+v", name, ck)
		}
	}

	rec = httptest.NewRecorder()
	c.ClearAccessCredential(rec)
	c.ClearRefreshCredential(rec)
	cleared := rec.Result().Cookies()
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cleared cookies, got %d", len(cleared))
	}
	for _, ck := range cleared {
		if ck.Value != "" || ck.MaxAge >= 0 || !ck.Expires.Equal(time.Unix(0, 0).UTC()) {
			t.Fatalf("cookie %s not expired: %+v", ck.Name, ck)
		}
	}
}

func TestCookies_Read(t *testing.T) {
	c := NewCookies(session.DefaultConfig().Cookies)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c.AccessCredential(r) != "" || c.RefreshCredential(r) != "" {
		t.Fatalf("expected empty credentials")
	}

	r.AddCookie(&http.Cookie{Name: "accessToken", Value: "a"})
	r.AddCookie(&http.Cookie{Name: "refreshToken", Value: "r"})
	if c.AccessCredential(r) != "a" || c.RefreshCredential(r) != "r" {
		t.Fatalf("credentials not read")
	}
}
