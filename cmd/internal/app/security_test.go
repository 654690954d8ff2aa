package app

import (
	"strings"
	"testing"

	"chatpad/cmd/internal/auth/session"
)

func TestValidateSecurityConfig(t *testing.T) {
	long := func(c byte) []byte { return []byte(strings.Repeat(string(c), 32)) }

	cases := []struct {
		name    string
		strict  bool
		access  []byte
		refresh []byte
		wantErr string
	}{
		{name: "lenient accepts short", access: []byte("a"), refresh: []byte("b")},
		{name: "strict ok", strict: true, access: long('a'), refresh: long('b')},
		{name: "strict short access", strict: true, access: []byte("short"), refresh: long('b'), wantErr: "CHATPAD_JWT_ACCESS_SECRET is too short"},
		{name: "strict short refresh", strict: true, access: long('a'), refresh: []byte("short"), wantErr: "CHATPAD_JWT_REFRESH_SECRET is too short"},
		{name: "strict identical", strict: true, access: long('a'), refresh: long('a'), wantErr: "identical"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := session.Config{AccessSecret: tc.access, RefreshSecret: tc.refresh}
			err := ValidateSecurityConfig(Config{RequireStrongSecrets: tc.strict}, sess)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v want containing %q", err, tc.wantErr)
			}
		})
	}
}
