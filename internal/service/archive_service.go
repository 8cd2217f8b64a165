package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/makeasinger/musicgen/internal/client"
	"github.com/makeasinger/musicgen/internal/model"
)

const (
	maxParallelDownloads = 4
	// signedURLExpiry is the longest lifetime S3 presigning allows.
	signedURLExpiry = 7 * 24 * time.Hour
)

// ArchiveService copies generated media from the upstream CDN into object
// storage. Upstream links expire; archived copies do not.
type ArchiveService struct {
	store      client.ObjectStore
	httpClient *http.Client
	logger     *log.Logger
}

// NewArchiveService creates an archiver. A nil store disables archiving.
func NewArchiveService(store client.ObjectStore, logger *log.Logger) *ArchiveService {
	if logger == nil {
		logger = log.Default()
	}
	return &ArchiveService{
		store:      store,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger.WithPrefix("archive"),
	}
}

// Enabled reports whether an object store is configured.
func (s *ArchiveService) Enabled() bool {
	return s != nil && s.store != nil
}

// Archive uploads every media URL of result under media/<feature>/<jobID>/
// and returns upstream URL → archived URL. Media already archived is not
// uploaded again. A failed download is logged and skipped.
func (s *ArchiveService) Archive(ctx context.Context, f model.Feature, jobID string, result interface{}) (map[string]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	urls := MediaURLs(result)
	if len(urls) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		archived = make(map[string]string, len(urls))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	for i, u := range urls {
		key := fmt.Sprintf("media/%s/%s/%d%s", f.Slug(), jobID, i, mediaExt(u))
		g.Go(func() error {
			archivedURL, err := s.archiveOne(ctx, key, u)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("failed to archive media", "job", jobID, "url", u, "err", err)
				return nil
			}
			mu.Lock()
			archived[u] = archivedURL
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return archived, fmt.Errorf("failed to archive media: %w", err)
	}
	return archived, nil
}

func (s *ArchiveService) archiveOne(ctx context.Context, key, rawURL string) (string, error) {
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return s.link(ctx, key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.store.Upload(ctx, key, resp.Body, contentType); err != nil {
		return "", err
	}
	return s.link(ctx, key)
}

// link returns the public URL of key, or a presigned one for private buckets.
func (s *ArchiveService) link(ctx context.Context, key string) (string, error) {
	if u := s.store.GetPublicURL(key); u != "" {
		return u, nil
	}
	return s.store.GetSignedURL(ctx, key, signedURLExpiry)
}

// MediaURLs lists the downloadable media of a feature result.
func MediaURLs(result interface{}) []string {
	var urls []string
	add := func(u string) {
		if u != "" {
			urls = append(urls, u)
		}
	}

	switch r := result.(type) {
	case []model.AudioTrack:
		for _, t := range r {
			add(t.AudioURL)
			add(t.ImageURL)
		}
	case model.SeparationResult:
		add(r.InstrumentalURL)
		add(r.VocalURL)
	case model.WavResult:
		add(r.WavURL)
	case model.Mp4Result:
		add(r.VideoURL)
	}
	return urls
}

func mediaExt(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	ext := path.Ext(rawURL)
	if len(ext) > 6 {
		return ""
	}
	return ext
}
