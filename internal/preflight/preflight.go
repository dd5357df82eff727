// Package preflight runs the availability checks that gate daemon startup.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/theirongolddev/ynabd/internal/ynab"
)

var (
	// ErrMissingFiles means one or more required files are absent.
	ErrMissingFiles = errors.New("preflight: required files missing")
	// ErrUnreachable means the API endpoint did not answer with 200 OK.
	ErrUnreachable = errors.New("preflight: api endpoint unreachable")
)

// CheckFiles reports which of the required files are absent under base.
// ok is false iff at least one is missing.
func CheckFiles(base string, required []string) (missing []string, ok bool) {
	for _, f := range required {
		if _, err := os.Stat(filepath.Join(base, f)); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		log.Error().Strs("missing", missing).Str("dir", base).Msg("the following files are missing")
		return missing, false
	}
	return nil, true
}

// CheckURL reports whether endpoint answers a plain GET with 200 OK.
func CheckURL(ctx context.Context, hc *http.Client, endpoint string) bool {
	if err := ynab.Ping(ctx, hc, endpoint); err != nil {
		var apiErr *ynab.APIError
		if errors.As(err, &apiErr) {
			log.Debug().Int("status", apiErr.Status).Msg("connection with YNAB established, but the API endpoint did not respond with 200")
		} else {
			log.Debug().Err(err).Msg("unable to establish connection with YNAB")
		}
		return false
	}
	log.Debug().Str("url", endpoint).Msg("connection with YNAB established")
	return true
}

// Run performs both checks and returns the first failure.
func Run(ctx context.Context, hc *http.Client, base string, required []string, endpoint string) error {
	if missing, ok := CheckFiles(base, required); !ok {
		return fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(missing, ", "))
	}
	if !CheckURL(ctx, hc, endpoint) {
		return fmt.Errorf("%w: %s", ErrUnreachable, endpoint)
	}
	return nil
}
