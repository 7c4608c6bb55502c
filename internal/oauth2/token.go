package oauth2

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.alderamin.dev/dgrpc/internal/atomicfile"
	"go.alderamin.dev/dgrpc/internal/migrate"
)

// ErrNoToken is returned by loadRecord when no token file exists yet:
// the caller has never completed the initial authorize/authenticate
// flow for this config path.
var ErrNoToken = errors.New("oauth2: no token file found")

// Record is the OAuth2 token state persisted to disk. It carries the
// access token itself, not just the refresh token, so a freshly started
// process can authenticate without waiting on a refresh round trip.
type Record struct {
	Version      int       `json:"version"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether now is within refreshWindow of ExpiresAt.
func (r Record) Expired(now time.Time, refreshWindow time.Duration) bool {
	return !now.Before(r.ExpiresAt.Add(-refreshWindow))
}

func init() {
	migrate.Token.Register(migrate.Migration{
		Version:     1,
		Description: "initial token schema",
		Upgrade:     func(data []byte) ([]byte, error) { return data, nil },
	})
}

// loadRecord reads and migrates the token record at path. It returns
// ErrNoToken if the file does not exist, and also if the file exists
// but cannot be parsed as a token record: per spec, a corrupt token
// file is treated as absent so the initial authorize flow reruns
// rather than leaving the client permanently unable to start.
func loadRecord(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNoToken
		}
		return Record{}, fmt.Errorf("oauth2: read token file: %w", err)
	}

	rec, err := parseRecord(raw)
	if err != nil {
		slog.Warn("oauth2_token_file_corrupt", "path", path, "error", err)
		return Record{}, ErrNoToken
	}
	return rec, nil
}

func parseRecord(raw []byte) (Record, error) {
	var versioned struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &versioned); err != nil {
		return Record{}, fmt.Errorf("oauth2: parse token version: %w", err)
	}

	migrated, _, err := migrate.Token.Run(raw, versioned.Version)
	if err != nil {
		return Record{}, fmt.Errorf("oauth2: migrate token file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(migrated, &rec); err != nil {
		return Record{}, fmt.Errorf("oauth2: parse token record: %w", err)
	}
	return rec, nil
}

// saveRecord writes rec to path atomically.
func saveRecord(path string, rec Record) error {
	rec.Version = migrate.Token.CurrentVersion
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("oauth2: marshal token record: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o600); err != nil {
		return fmt.Errorf("oauth2: write token file: %w", err)
	}
	return nil
}
