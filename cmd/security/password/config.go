package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams is the hashing cost. MemoryKiB is in KiB, as argon2.IDKey expects.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds what Validate accepts.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig is 64 MiB / 3 passes with parallelism clamped to [1..4],
// and a minimum password length of 8 characters.
func DefaultConfig() Config {
	threads := min(max(runtime.NumCPU(), 1), 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// envU32 describes one unsigned Argon2 knob read from the environment.
type envU32 struct {
	key    string
	lo, hi uint32
	dst    func(*Config, uint32) error
}

// FromEnv starts from DefaultConfig and applies overrides:
//
//	CHATPAD_PASSWORD_MIN_LEN, CHATPAD_PASSWORD_MAX_LEN, CHATPAD_PASSWORD_REJECT_VERY_WEAK,
//	CHATPAD_ARGON2_MEMORY_KIB, CHATPAD_ARGON2_ITERATIONS, CHATPAD_ARGON2_PARALLELISM,
//	CHATPAD_ARGON2_SALT_LEN, CHATPAD_ARGON2_KEY_LEN.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("CHATPAD_PASSWORD_MIN_LEN"); ok {
		n, err := parseIntRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("CHATPAD_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}
	if v, ok := os.LookupEnv("CHATPAD_PASSWORD_MAX_LEN"); ok {
		n, err := parseIntRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("CHATPAD_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}
	if v, ok := os.LookupEnv("CHATPAD_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("CHATPAD_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	knobs := []envU32{
		{"CHATPAD_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, func(c *Config, u uint32) error { c.Params.MemoryKiB = u; return nil }},
		{"CHATPAD_ARGON2_ITERATIONS", 1, 20, func(c *Config, u uint32) error { c.Params.Iterations = u; return nil }},
		{"CHATPAD_ARGON2_PARALLELISM", 1, 64, func(c *Config, u uint32) error {
			if u > math.MaxUint8 {
				return fmt.Errorf("out of range [0..%d]", math.MaxUint8)
			}
			c.Params.Parallelism = uint8(u)
			return nil
		}},
		{"CHATPAD_ARGON2_SALT_LEN", 8, 64, func(c *Config, u uint32) error { c.Params.SaltLength = u; return nil }},
		{"CHATPAD_ARGON2_KEY_LEN", 16, 64, func(c *Config, u uint32) error { c.Params.KeyLength = u; return nil }},
	}
	for _, k := range knobs {
		v, ok := os.LookupEnv(k.key)
		if !ok {
			continue
		}
		u, err := parseU32Range(v, k.lo, k.hi)
		if err == nil {
			err = k.dst(&cfg, u)
		}
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", k.key, err)
		}
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf("password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength, cfg.Policy.MaxLength)
	}
	return cfg, nil
}

func parseIntRange(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("out of range [%d..%d]", lo, hi)
	}
	return n, nil
}

func parseU32Range(s string, lo, hi uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < lo || u > hi {
		return 0, fmt.Errorf("out of range [%d..%d]", lo, hi)
	}
	return u, nil
}
