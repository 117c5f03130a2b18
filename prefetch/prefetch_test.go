package prefetch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/newsgenie/storycache/cache"
	"github.com/newsgenie/storycache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records every preload call.
type fakeSink struct {
	mu       sync.Mutex
	urls     []string
	priority Priority
	calls    int
}

func (f *fakeSink) Preload(urls []string, priority Priority) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, urls...)
	f.priority = priority
	f.calls++
}

// fakeAudioQueuer records enqueued narration URLs.
type fakeAudioQueuer struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeAudioQueuer) EnqueueAudio(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, urls...)
}

// panickySink stands in for a misbehaving platform sink.
type panickySink struct{}

func (panickySink) Preload([]string, Priority) {
	panic("sink exploded")
}

func feedOf(n int) []model.StoryCard {
	stories := make([]model.StoryCard, n)
	for i := range stories {
		id := fmt.Sprintf("s%d", i)
		stories[i] = model.StoryCard{
			ID:       id,
			Title:    "Story " + id,
			ImageURL: "https://example.com/img/" + id + ".jpg",
			AudioURL: "https://example.com/audio/" + id + ".mp3",
			Language: model.LangEnglish,
			Category: model.CategoryWorld,
		}
	}
	return stories
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *fakeSink, *cache.Cache) {
	t.Helper()
	c, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	sink := &fakeSink{}
	return NewController(c, sink, opts...), sink, c
}

func TestController_WarmsWindow(t *testing.T) {
	ctrl, sink, c := newTestController(t)
	stories := feedOf(10)

	// currentIndex=2 with the default window of 3 warms indices 3,4,5.
	ctrl.OnPositionChanged(stories, 2)
	ctrl.Wait()

	assert.Equal(t, []string{
		"https://example.com/img/s3.jpg",
		"https://example.com/img/s4.jpg",
		"https://example.com/img/s5.jpg",
	}, sink.urls)
	assert.Equal(t, PriorityHigh, sink.priority)

	for _, id := range []string{"s3", "s4", "s5"} {
		assert.NotNil(t, c.Get(id), "Window story %s should be cached", id)
	}
	assert.Nil(t, c.Get("s2"), "The current story is not part of the window")
	assert.Nil(t, c.Get("s6"), "Stories past the window are not warmed")
}

func TestController_WindowClippedAtTail(t *testing.T) {
	ctrl, sink, c := newTestController(t)
	stories := feedOf(5)

	ctrl.OnPositionChanged(stories, 3)
	ctrl.Wait()

	assert.Equal(t, []string{"https://example.com/img/s4.jpg"}, sink.urls)
	assert.NotNil(t, c.Get("s4"))
}

func TestController_NoWindowAtLastItem(t *testing.T) {
	ctrl, sink, c := newTestController(t)
	stories := feedOf(5)

	ctrl.OnPositionChanged(stories, 4)
	ctrl.OnPositionChanged(stories, 10)
	ctrl.OnPositionChanged(nil, 0)
	ctrl.Wait()

	assert.Zero(t, sink.calls)
	assert.Equal(t, 0, c.CountCached())
}

func TestController_SkipsMissingImageURLs(t *testing.T) {
	ctrl, sink, c := newTestController(t)
	stories := feedOf(5)
	stories[2].ImageURL = ""

	ctrl.OnPositionChanged(stories, 0)
	ctrl.Wait()

	assert.Equal(t, []string{
		"https://example.com/img/s1.jpg",
		"https://example.com/img/s3.jpg",
	}, sink.urls)
	assert.NotNil(t, c.Get("s2"), "The story itself is still cached")
}

func TestController_RepeatedPositionIsHarmless(t *testing.T) {
	ctrl, sink, c := newTestController(t)
	stories := feedOf(10)

	ctrl.OnPositionChanged(stories, 2)
	ctrl.OnPositionChanged(stories, 2)
	ctrl.Wait()

	// Redundant submissions are tolerated, not tracked away.
	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, 3, c.CountCached(), "Upserts leave one record per story")
}

func TestController_CustomWindowAndTTL(t *testing.T) {
	ctrl, sink, c := newTestController(t, WithWindow(5), WithTTL(50*time.Millisecond))
	stories := feedOf(10)

	ctrl.OnPositionChanged(stories, 0)
	ctrl.Wait()

	assert.Len(t, sink.urls, 5)
	assert.Equal(t, 5, c.CountCached())

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, c.Get("s1"), "Warmed records honor the configured TTL")
}

func TestController_AudioQueuer(t *testing.T) {
	audio := &fakeAudioQueuer{}
	ctrl, _, _ := newTestController(t, WithAudioQueuer(audio))
	stories := feedOf(10)
	stories[4].AudioURL = ""

	ctrl.OnPositionChanged(stories, 2)
	ctrl.Wait()

	assert.Equal(t, []string{
		"https://example.com/audio/s3.mp3",
		"https://example.com/audio/s5.mp3",
	}, audio.urls)
}

func TestController_SinkPanicIsContained(t *testing.T) {
	c, err := cache.Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	ctrl := NewController(c, panickySink{})
	stories := feedOf(10)

	ctrl.OnPositionChanged(stories, 2)
	ctrl.Wait()

	// The panic was swallowed; later position changes keep working with
	// the process intact.
	ctrl.OnPositionChanged(stories, 5)
	ctrl.Wait()
}

func TestController_DegradedCache(t *testing.T) {
	sink := &fakeSink{}
	ctrl := NewController(cache.Disabled(), sink)
	stories := feedOf(10)

	ctrl.OnPositionChanged(stories, 2)
	ctrl.Wait()

	// Image preloading still happens even without offline storage.
	assert.Len(t, sink.urls, 3)
}
