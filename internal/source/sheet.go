package source

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"healthline/internal/model"
)

// Sheet fetches the CSV export of a published spreadsheet. Every successful
// download is kept in a diskv snapshot cache; when the network is down the last
// snapshot is served instead.
type Sheet struct {
	URL    string
	Layout SheetLayout

	Client *http.Client
	Logger *log.Logger

	cache *diskv.Diskv
}

func NewSheet(url, cacheDir string, layout SheetLayout) *Sheet {
	s := &Sheet{
		URL:    url,
		Layout: layout,
		Client: &http.Client{Timeout: 15 * time.Second},
		Logger: log.New(io.Discard, "", 0),
	}
	if cacheDir != "" {
		s.cache = diskv.New(diskv.Options{
			BasePath:     cacheDir,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 4 * 1024 * 1024,
		})
	}
	return s
}

func (s *Sheet) Name() string { return "sheet:" + s.URL }

func (s *Sheet) Load(ctx context.Context) ([]model.Event, error) {
	body, fetchErr := s.fetch(ctx)
	if fetchErr == nil {
		if s.cache != nil {
			if err := s.cache.Write(s.key(), body); err != nil {
				s.Logger.Printf("sheet: write snapshot: %v", err)
			}
		}
		return ParseCSV(ctx, bytes.NewReader(body), s.URL, s.Layout)
	}

	if s.cache == nil || !s.cache.Has(s.key()) {
		return nil, fetchErr
	}
	s.Logger.Printf("sheet: %v; using cached snapshot", fetchErr)
	body, err := s.cache.Read(s.key())
	if err != nil {
		return nil, fmt.Errorf("%w (snapshot: %v)", fetchErr, err)
	}
	return ParseCSV(ctx, bytes.NewReader(body), s.URL+" (cached)", s.Layout)
}

// Cached reports whether a snapshot of this sheet exists.
func (s *Sheet) Cached() bool {
	return s.cache != nil && s.cache.Has(s.key())
}

func (s *Sheet) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	return b, nil
}

func (s *Sheet) key() string {
	sum := md5.Sum([]byte(s.URL))
	return fmt.Sprintf("sheet-%x", sum[:8])
}
