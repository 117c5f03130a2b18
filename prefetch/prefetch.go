// Package prefetch warms the cache and the image pipeline ahead of the
// reader's scroll position.
package prefetch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/newsgenie/storycache/cache"
	"github.com/newsgenie/storycache/model"
	"github.com/samber/lo"
)

// DefaultWindow is how many upcoming stories are warmed ahead of the
// current position.
const DefaultWindow = 3

// Priority is the preload priority handed to the image sink.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ImageSink accepts image URLs for preloading. Implementations
// deduplicate by URL; submitting the same URL twice is a no-op for the
// sink, so the controller doesn't track what it already sent.
type ImageSink interface {
	Preload(urls []string, priority Priority)
}

// AudioQueuer accepts narration audio URLs for background download.
// Extension point; a nil queuer disables audio prefetch.
type AudioQueuer interface {
	EnqueueAudio(urls []string)
}

// Controller watches the reader's position and warms the next window of
// stories. All work is fire-and-forget: a position change never blocks
// the caller, and a prefetch failure never surfaces past the log.
type Controller struct {
	cache  *cache.Cache
	images ImageSink
	audio  AudioQueuer
	window int
	ttl    time.Duration
	logger *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithWindow overrides the lookahead window size.
func WithWindow(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.window = size
		}
	}
}

// WithTTL overrides the cache TTL applied to warmed stories.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithAudioQueuer enables narration audio prefetch for the window.
func WithAudioQueuer(q AudioQueuer) Option {
	return func(c *Controller) {
		c.audio = q
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller warming into the given cache and
// image sink.
func NewController(c *cache.Cache, images ImageSink, opts ...Option) *Controller {
	ctrl := &Controller{
		cache:  c,
		images: images,
		window: DefaultWindow,
		ttl:    cache.DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// OnPositionChanged warms the window ahead of currentIndex. Repeated
// calls with the same position are harmless duplicates: cache writes are
// idempotent upserts and the sink ignores URLs it has seen. In-flight
// work for a window the reader already scrolled past is left to finish;
// its results simply go unused and expire on their own.
func (c *Controller) OnPositionChanged(stories []model.StoryCard, currentIndex int) {
	start, end := model.Window(currentIndex, c.window, len(stories))
	if start >= end {
		return
	}

	window := append([]model.StoryCard(nil), stories[start:end]...)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("prefetch panicked", "panic", r)
			}
		}()
		c.warm(window)
	}()
}

func (c *Controller) warm(window []model.StoryCard) {
	imageURLs := lo.FilterMap(window, func(s model.StoryCard, _ int) (string, bool) {
		return s.ImageURL, s.ImageURL != ""
	})
	if len(imageURLs) > 0 && c.images != nil {
		c.images.Preload(imageURLs, PriorityHigh)
	}

	c.cache.Put(window, c.ttl)

	if c.audio != nil {
		audioURLs := lo.FilterMap(window, func(s model.StoryCard, _ int) (string, bool) {
			return s.AudioURL, s.AudioURL != ""
		})
		if len(audioURLs) > 0 {
			c.audio.EnqueueAudio(audioURLs)
		}
	}
}

// Wait blocks until every in-flight prefetch has settled. Lets tests
// await quiescence instead of racing timers.
func (c *Controller) Wait() {
	c.wg.Wait()
}
