// Package gtfs reads static GTFS feeds and turns their routes into bus line
// drafts for the admin import.
package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"trajet.transportbi.org/internal/logging"
)

// DefaultMaxFeedSize bounds a downloaded feed.
const DefaultMaxFeedSize = 200 * 1024 * 1024

type FetchOptions struct {
	AuthHeaderKey   string
	AuthHeaderValue string
	// MaxSize overrides DefaultMaxFeedSize when positive.
	MaxSize int64
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the raw zip bytes of the feed at source, a local path or an
// http(s) URL.
func Fetch(ctx context.Context, source string, opts FetchOptions) ([]byte, error) {
	maxSize := int64(DefaultMaxFeedSize)
	if opts.MaxSize > 0 {
		maxSize = opts.MaxSize
	}

	if !isRemote(source) {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("GTFS file exceeds size limit of %d bytes", maxSize)
		}
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	if opts.AuthHeaderKey != "" && opts.AuthHeaderValue != "" {
		req.Header.Set(opts.AuthHeaderKey, opts.AuthHeaderValue)
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	if int64(len(b)) > maxSize {
		return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxSize)
	}
	return b, nil
}

func Parse(b []byte) (*gtfs.Static, error) {
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return static, nil
}

// Load fetches and parses the feed at source.
func Load(ctx context.Context, source string, opts FetchOptions) (*gtfs.Static, error) {
	logger := slog.Default().With(slog.String("component", "gtfs_loader"))

	b, err := Fetch(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	static, err := Parse(b)
	if err != nil {
		return nil, err
	}
	logging.LogOperation(logger, "gtfs_feed_loaded",
		slog.String("source", source),
		slog.Int("routes", len(static.Routes)),
		slog.Int("stops", len(static.Stops)),
		slog.Int("trips", len(static.Trips)))
	return static, nil
}
