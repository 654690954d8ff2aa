package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of key and whether it is non-empty.
func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// parseOr parses key with parse, returning def when unset or rejected.
func parseOr[T any](key string, def T, parse func(string) (T, bool)) T {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	if out, ok := parse(v); ok {
		return out
	}
	return def
}

func EnvString(key, def string) string {
	return parseOr(key, def, func(v string) (string, bool) { return v, true })
}

func EnvBool(key string, def bool) bool {
	return parseOr(key, def, func(v string) (bool, bool) {
		b, err := strconv.ParseBool(v)
		return b, err == nil
	})
}

// EnvInt accepts positive values only.
func EnvInt(key string, def int) int {
	return parseOr(key, def, func(v string) (int, bool) {
		n, err := strconv.Atoi(v)
		return n, err == nil && n > 0
	})
}

// EnvInt32 accepts zero and positive values.
func EnvInt32(key string, def int32) int32 {
	return parseOr(key, def, func(v string) (int32, bool) {
		n, err := strconv.ParseInt(v, 10, 32)
		return int32(n), err == nil && n >= 0
	})
}

// EnvDuration accepts zero so a timeout can be disabled explicitly.
func EnvDuration(key string, def time.Duration) time.Duration {
	return parseOr(key, def, func(v string) (time.Duration, bool) {
		d, err := time.ParseDuration(v)
		return d, err == nil && d >= 0
	})
}

// EnvCSV splits a comma separated list, dropping blanks.
func EnvCSV(key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
