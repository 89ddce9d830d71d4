package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDataUnavailable 某个内容类型拉取失败，整个 feed 视为失败
	ErrDataUnavailable = errors.New("content data unavailable")
	// ErrInvalidSpace 空间 id 为空或格式错误
	ErrInvalidSpace = errors.New("invalid space id")
	// ErrNotFound single-item lookups only
	ErrNotFound = database.ErrNotFound
)

// PartialPolicy decides what a failed per-variant fetch does to the feed
type PartialPolicy string

const (
	// PolicyStrict aborts the whole feed with ErrDataUnavailable
	PolicyStrict PartialPolicy = "strict"
	// PolicyDegrade substitutes an empty list for the failed variant
	PolicyDegrade PartialPolicy = "degrade"
)

// ParsePartialPolicy defaults to strict for anything unrecognised
func ParsePartialPolicy(s string) PartialPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(PolicyDegrade)) {
		return PolicyDegrade
	}
	return PolicyStrict
}

// ContentFetcher is the slice of the repository the engine reads from
type ContentFetcher interface {
	FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error)
}

// Engine 聚合一个空间的四种内容并提供过滤
type Engine struct {
	repo         ContentFetcher
	log          logrus.FieldLogger
	policy       PartialPolicy
	fetchTimeout time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger (default: logrus standard logger)
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPartialPolicy sets the partial-failure policy
func WithPartialPolicy(p PartialPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithFetchTimeout bounds each aggregation; zero means no extra deadline
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.fetchTimeout = d }
}

// New 创建聚合引擎，repo 由调用方持有和关闭
func New(repo ContentFetcher, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		log:    logrus.StandardLogger(),
		policy: PolicyStrict,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateSpaceID rejects blank ids and ids containing whitespace or control characters
func ValidateSpaceID(spaceID string) error {
	if strings.TrimSpace(spaceID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSpace)
	}
	for _, r := range spaceID {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidSpace, spaceID)
		}
	}
	return nil
}

// LoadSpaceFeed fetches every variant of spaceID concurrently and merges them
// newest first. Under the strict policy any failed fetch fails the whole call
// with ErrDataUnavailable and no items are returned.
func (e *Engine) LoadSpaceFeed(ctx context.Context, spaceID string) ([]models.Content, error) {
	if err := ValidateSpaceID(spaceID); err != nil {
		return nil, err
	}
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	log := e.log.WithField("space_id", spaceID)

	// one slot per variant; each goroutine writes only its own slot
	results := make([][]models.Content, len(models.ContentVariants))
	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range models.ContentVariants {
		i, variant := i, variant
		g.Go(func() error {
			items, err := e.repo.FetchContentBySpace(gctx, spaceID, variant)
			if err != nil {
				if e.policy == PolicyDegrade && ctx.Err() == nil {
					log.WithError(err).WithField("content_type", variant).Warn("Fetch failed, continuing with empty list")
					results[i] = nil
					return nil
				}
				return fmt.Errorf("%w: fetch %s: %w", ErrDataUnavailable, variant, err)
			}
			// 来源未标注类型时按查询的 variant 补上
			for j := range items {
				if items[j].ContentType == "" {
					items[j].ContentType = variant
				}
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Space feed aggregation failed")
		return nil, err
	}

	merged := Merge(results...)
	log.WithFields(logrus.Fields{
		"items":    len(merged),
		"duration": time.Since(start).String(),
	}).Debug("Space feed aggregated")
	return merged, nil
}

// GetFeed wraps LoadSpaceFeed
func (e *Engine) GetFeed(ctx context.Context, spaceID string) ([]models.Content, error) {
	return e.LoadSpaceFeed(ctx, spaceID)
}

// GetCounts 返回空间内各类型数量
func (e *Engine) GetCounts(ctx context.Context, spaceID string) (Counts, error) {
	items, err := e.LoadSpaceFeed(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return CountByType(items), nil
}

// Query runs the feed, filters and paginates it in one call
func (e *Engine) Query(ctx context.Context, spaceID string, opts Options, page Page) (Result, error) {
	items, err := e.LoadSpaceFeed(ctx, spaceID)
	if err != nil {
		return Result{}, err
	}
	filtered := ApplyFilters(items, opts)
	return Result{
		Items:  Paginate(filtered, page),
		Counts: CountByType(items),
		Total:  len(filtered),
		Page:   page.normalized(),
	}, nil
}

// Result is one page of a filtered feed plus the unfiltered counts
type Result struct {
	Items  []models.Content
	Counts Counts
	Total  int
	Page   Page
}
