package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultBindHost         = "0.0.0.0"
	DefaultBindPort         = 8000
	DefaultSessionDuration  = time.Hour
	MinSessionDuration      = 5 * time.Minute
	DefaultChunkSize        = 1 << 20 // 1 MiB
	DefaultMaxConnections   = 64
	DefaultLockoutThreshold = 3
	FallbackContentType     = "video/mp4"
	MinUsernameLen          = 4
	MinPasswordLen          = 8
)

var defaultFileFormats = []string{".mov", ".mp4", ".mkv", ".webm"}

// Settings holds the full runtime configuration, loaded from the environment.
type Settings struct {
	// MediaRoot is the directory whose files are served. Required.
	MediaRoot string
	// DataDir holds the sqlite database and other runtime state.
	DataDir string
	// LogFile enables rotated file logging when non-empty.
	LogFile string

	BindHost string
	BindPort int

	// SessionDuration bounds token validity from issue time.
	SessionDuration time.Duration
	// ChunkSize caps the size of a single streamed chunk.
	ChunkSize int64
	// MaxConnections caps concurrently accepted TCP connections.
	MaxConnections int
	// LockoutThreshold is the consecutive-failure count that locks a client out.
	LockoutThreshold int

	// FileFormats lists servable file extensions (dot-prefixed, lower case).
	FileFormats []string
	// AllowedOrigins lists origins permitted by the CORS middleware.
	AllowedOrigins []string
	// Accounts maps configured usernames to their plaintext passwords.
	// Hashed before storage; empty means a bootstrap account is generated.
	Accounts map[string]string

	// DefaultContentType is served when extension and sniff lookups both fail.
	DefaultContentType string
}

// Load reads Settings from the environment and validates them.
func Load() (*Settings, error) {
	s := &Settings{
		MediaRoot:          os.Getenv("MEDIA_ROOT"),
		DataDir:            envOr("DATA_DIR", "./data"),
		LogFile:            os.Getenv("LOG_FILE"),
		BindHost:           envOr("BIND_HOST", DefaultBindHost),
		BindPort:           DefaultBindPort,
		SessionDuration:    DefaultSessionDuration,
		ChunkSize:          DefaultChunkSize,
		MaxConnections:     DefaultMaxConnections,
		LockoutThreshold:   DefaultLockoutThreshold,
		FileFormats:        defaultFileFormats,
		DefaultContentType: envOr("DEFAULT_CONTENT_TYPE", FallbackContentType),
		Accounts:           map[string]string{},
	}

	if s.MediaRoot == "" {
		return nil, fmt.Errorf("config: MEDIA_ROOT is required")
	}
	info, err := os.Stat(s.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("config: MEDIA_ROOT: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config: MEDIA_ROOT %q is not a directory", s.MediaRoot)
	}

	if raw := os.Getenv("BIND_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("config: invalid BIND_PORT %q", raw)
		}
		s.BindPort = port
	}

	if raw := os.Getenv("SESSION_DURATION"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SESSION_DURATION %q: %w", raw, err)
		}
		d := time.Duration(secs) * time.Second
		if d < MinSessionDuration {
			return nil, fmt.Errorf("config: SESSION_DURATION must be at least %d seconds", int(MinSessionDuration.Seconds()))
		}
		s.SessionDuration = d
	}

	if raw := os.Getenv("CHUNK_SIZE"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid CHUNK_SIZE %q", raw)
		}
		s.ChunkSize = n
	}

	if raw := os.Getenv("MAX_CONNECTIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("config: invalid MAX_CONNECTIONS %q", raw)
		}
		s.MaxConnections = n
	}

	if raw := os.Getenv("FILE_FORMATS"); raw != "" {
		formats, err := ParseStringList(raw)
		if err != nil {
			return nil, fmt.Errorf("config: FILE_FORMATS: %w", err)
		}
		for i, f := range formats {
			if !strings.HasPrefix(f, ".") {
				return nil, fmt.Errorf("config: FILE_FORMATS entry %q must start with a dot", f)
			}
			formats[i] = strings.ToLower(f)
		}
		s.FileFormats = formats
	}

	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins, err := ParseStringList(raw)
		if err != nil {
			return nil, fmt.Errorf("config: ALLOWED_ORIGINS: %w", err)
		}
		s.AllowedOrigins = origins
	}

	if raw := os.Getenv("ACCOUNTS"); raw != "" {
		accounts, err := ParseAccounts(raw)
		if err != nil {
			return nil, fmt.Errorf("config: ACCOUNTS: %w", err)
		}
		s.Accounts = accounts
	}

	return s, nil
}

// ParseStringList parses a list-valued setting. Accepted forms are a JSON
// array of strings or comma-separated values. Entries are trimmed; empty
// entries and duplicates are rejected with explicit errors.
func ParseStringList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty list value")
	}

	var values []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
	} else {
		values = strings.Split(raw, ",")
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("list contains an empty entry")
		}
		if _, dup := seen[v]; dup {
			return nil, fmt.Errorf("duplicate list entry %q", v)
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// ParseAccounts parses account credentials. Accepted forms are a JSON object
// mapping username to password, or comma-separated "user:password" pairs.
// Usernames shorter than MinUsernameLen and passwords shorter than
// MinPasswordLen are rejected, as are duplicate usernames.
func ParseAccounts(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty accounts value")
	}

	pairs := make(map[string]string)
	if strings.HasPrefix(raw, "{") {
		dec := json.NewDecoder(strings.NewReader(raw))
		tok, err := dec.Token()
		if err != nil || tok != json.Delim('{') {
			return nil, fmt.Errorf("invalid JSON object")
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("invalid JSON object: %w", err)
			}
			key := keyTok.(string)
			var val string
			if err := dec.Decode(&val); err != nil {
				return nil, fmt.Errorf("account %q: password must be a string", key)
			}
			key = strings.TrimSpace(key)
			if _, dup := pairs[key]; dup {
				return nil, fmt.Errorf("duplicate username %q", key)
			}
			pairs[key] = strings.TrimSpace(val)
		}
	} else {
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			user, pass, ok := strings.Cut(entry, ":")
			if !ok {
				return nil, fmt.Errorf("entry %q is not a user:password pair", entry)
			}
			user = strings.TrimSpace(user)
			if _, dup := pairs[user]; dup {
				return nil, fmt.Errorf("duplicate username %q", user)
			}
			pairs[user] = strings.TrimSpace(pass)
		}
	}

	for user, pass := range pairs {
		if len(user) < MinUsernameLen {
			return nil, fmt.Errorf("username %q must be at least %d characters", user, MinUsernameLen)
		}
		if len(pass) < MinPasswordLen {
			return nil, fmt.Errorf("password for %q must be at least %d characters", user, MinPasswordLen)
		}
	}
	return pairs, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
