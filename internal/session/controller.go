// Package session owns the edit-session state machine: image selection,
// filter application, prompt submission and the result or failure that
// follows.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
	"glowstudio/internal/i18n"
	"glowstudio/internal/imaging"
	"glowstudio/internal/providers/image"
)

// Filterer renders a preset against a source image.
type Filterer interface {
	Apply(ctx context.Context, src domain.ImageSource, filterID string) (domain.ImageSource, error)
}

// Recorder persists successful generations. Failures are logged and never
// change session state.
type Recorder interface {
	Record(ctx context.Context, sessionID, prompt string, img domain.ImageSource) error
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Filters   Filterer
	Generator image.Generator
	Recorder  Recorder
	Logger    zerolog.Logger
	Now       func() time.Time
}

type state struct {
	status       domain.SessionStatus
	original     *domain.ImageSource
	working      *domain.ImageSource
	generated    *domain.ImageSource
	activeFilter string
	failure      domain.FailureKind
	lastPrompt   string
	locale       string
	version      uint64
	updatedAt    time.Time
}

// Controller serialises every transition of one session. Filter rendering
// and generation run outside the lock; their results are committed only if
// no newer operation has started in between.
type Controller struct {
	id   string
	deps Deps

	mu sync.Mutex
	st state
	// filterSeq is bumped by every operation that invalidates a pending
	// filter result.
	filterSeq uint64
	// epoch is bumped when the source image changes or the session resets.
	epoch uint64

	subs   map[uint64]chan Snapshot
	nextID uint64
	closed bool
	// lastAccess is the last lookup or transition; the sweep expires on it.
	lastAccess time.Time
}

// NewController returns an idle session.
func NewController(id, locale string, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Filters == nil {
		if catalog, err := imaging.DefaultCatalog(); err == nil {
			deps.Filters = imaging.NewEngine(catalog, deps.Logger)
		}
	}
	c := &Controller{
		id:   id,
		deps: deps,
		subs: make(map[uint64]chan Snapshot),
	}
	c.st = state{
		status:       domain.StatusIdle,
		activeFilter: imaging.IdentityFilterID,
		locale:       i18n.Normalize(locale),
		updatedAt:    deps.Now(),
	}
	c.lastAccess = c.st.updatedAt
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

func (c *Controller) logger() *zerolog.Logger {
	l := c.deps.Logger.With().Str("session_id", c.id).Logger()
	return &l
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the current lifecycle status.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.status
}

// Touch marks the session as accessed.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastAccess = c.deps.Now()
	c.mu.Unlock()
}

// idleBefore reports whether the session has gone unaccessed since cutoff.
// Sessions that are generating or have an open event stream never idle.
func (c *Controller) idleBefore(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.status == domain.StatusProcessing || len(c.subs) > 0 {
		return false
	}
	return c.lastAccess.Before(cutoff)
}

// Image returns the image held in slot, if any.
func (c *Controller) Image(slot domain.ImageSlot) (domain.ImageSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var img *domain.ImageSource
	switch slot {
	case domain.SlotOriginal:
		img = c.st.original
	case domain.SlotWorking:
		img = c.st.working
	case domain.SlotGenerated:
		img = c.st.generated
	}
	if img == nil {
		return domain.ImageSource{}, false
	}
	return *img, true
}

// SelectImage makes img the original and working image. Any pending filter
// or generation result from before the call is discarded when it arrives.
func (c *Controller) SelectImage(img domain.ImageSource) (Snapshot, error) {
	if img.IsZero() {
		return c.Snapshot(), domain.ErrEmptyImage
	}
	if !domain.IsImageMIME(img.MIMEType) {
		return c.Snapshot(), domain.ErrNotImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.status == domain.StatusProcessing {
		return c.snapshotLocked(), domain.ErrGenerationInFlight
	}
	c.epoch++
	c.filterSeq++
	c.st.original = &img
	c.st.working = &img
	c.st.generated = nil
	c.st.failure = domain.FailureNone
	c.st.activeFilter = imaging.IdentityFilterID
	c.st.lastPrompt = ""
	c.st.status = domain.StatusImageSelected
	snap := c.commitLocked()
	c.logger().Info().Str("image_id", img.ID).Str("mime", img.MIMEType).Int("bytes", len(img.Data)).Msg("image selected")
	return snap, nil
}

// ApplyFilter renders filterID against the original image and stores the
// result as the working image. Only the most recent call can commit; an
// older call that finishes later returns ErrStaleFilter.
func (c *Controller) ApplyFilter(ctx context.Context, filterID string) (Snapshot, error) {
	c.mu.Lock()
	if c.st.original == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrNoImage
	}
	if c.st.status == domain.StatusProcessing {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrGenerationInFlight
	}
	c.filterSeq++
	seq := c.filterSeq
	src := *c.st.original
	c.mu.Unlock()

	result, err := c.deps.Filters.Apply(ctx, src, filterID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.filterSeq {
		return c.snapshotLocked(), domain.ErrStaleFilter
	}
	if err != nil {
		return c.snapshotLocked(), err
	}
	c.st.working = &result
	c.st.activeFilter = filterID
	c.st.generated = nil
	if c.st.status == domain.StatusSuccess {
		c.st.status = domain.StatusImageSelected
	}
	return c.commitLocked(), nil
}

// Submit sends the working image and prompt to the generator and waits for
// the outcome. Cancelling ctx does not abort the provider call; a Reset or
// SelectImage does make its result be dropped. A failed generation is not
// an error of Submit: it moves the session to ERROR with a localized message.
func (c *Controller) Submit(ctx context.Context, prompt string, reference *domain.ImageSource) (Snapshot, error) {
	c.mu.Lock()
	if strings.TrimSpace(prompt) == "" {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrEmptyPrompt
	}
	if c.st.status == domain.StatusProcessing {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrGenerationInFlight
	}
	if c.st.working == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrNoImage
	}
	c.filterSeq++
	epoch := c.epoch
	req := image.GenerateRequest{
		Image:     *c.st.working,
		Prompt:    prompt,
		Reference: reference,
		SessionID: c.id,
	}
	c.st.status = domain.StatusProcessing
	c.st.generated = nil
	c.st.failure = domain.FailureNone
	c.st.lastPrompt = prompt
	c.commitLocked()
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	started := c.deps.Now()
	result, genErr := c.generate(detached, req)
	elapsed := c.deps.Now().Sub(started)

	c.mu.Lock()
	if epoch != c.epoch {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger().Info().Dur("elapsed", elapsed).Msg("generation result discarded after reset")
		return snap, domain.ErrSuperseded
	}
	if genErr != nil {
		kind := Classify(genErr)
		c.st.status = domain.StatusError
		c.st.failure = kind
		snap := c.commitLocked()
		c.mu.Unlock()
		c.logger().Warn().Err(genErr).
			Str("failure", string(kind)).
			Str("provider_kind", string(image.KindOf(genErr))).
			Dur("elapsed", elapsed).
			Msg("generation failed")
		return snap, nil
	}
	c.st.generated = &result
	c.st.status = domain.StatusSuccess
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger().Info().Str("image_id", result.ID).Int("bytes", len(result.Data)).Dur("elapsed", elapsed).Msg("generation succeeded")
	if c.deps.Recorder != nil {
		if err := c.deps.Recorder.Record(detached, c.id, prompt, result); err != nil {
			c.logger().Warn().Err(err).Msg("history record failed")
		}
	}
	return snap, nil
}

func (c *Controller) generate(ctx context.Context, req image.GenerateRequest) (img domain.ImageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	if c.deps.Generator == nil {
		return domain.ImageSource{}, errors.New("no image generator configured")
	}
	img, err = c.deps.Generator.Generate(ctx, req)
	if err == nil && img.IsZero() {
		err = &image.GenerationError{Kind: image.KindNoContent, Message: "No content generated"}
	}
	if err == nil {
		img.Origin = domain.OriginGenerated
		if img.ParentID == "" {
			img.ParentID = req.Image.ID
		}
	}
	return img, err
}

// DismissError clears a failure and returns to IMAGE_SELECTED. It is a
// no-op in any other state.
func (c *Controller) DismissError() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.status != domain.StatusError {
		return c.snapshotLocked()
	}
	c.st.failure = domain.FailureNone
	c.st.status = domain.StatusImageSelected
	return c.commitLocked()
}

// Reset clears every image and returns to IDLE. Any in-flight filter or
// generation result is discarded when it arrives.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.filterSeq++
	if c.st.status == domain.StatusIdle {
		return c.snapshotLocked()
	}
	locale := c.st.locale
	version := c.st.version
	c.st = state{
		status:       domain.StatusIdle,
		activeFilter: imaging.IdentityFilterID,
		locale:       locale,
		version:      version,
	}
	snap := c.commitLocked()
	c.logger().Info().Msg("session reset")
	return snap
}

// SetLocale switches the language used for error messages. An existing
// error message is re-rendered in the new language.
func (c *Controller) SetLocale(locale string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := i18n.Normalize(locale)
	if next == c.st.locale {
		return c.snapshotLocked()
	}
	c.st.locale = next
	return c.commitLocked()
}

// Locale returns the session language.
func (c *Controller) Locale() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.locale
}

// Subscribe registers for snapshots published after each transition. The
// channel keeps the newest snapshots when the reader falls behind and is
// closed by cancel or Close.
func (c *Controller) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.nextID++
	id := c.nextID
	c.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close drops every subscriber. Later transitions are still applied.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) commitLocked() Snapshot {
	c.st.version++
	c.st.updatedAt = c.deps.Now()
	c.lastAccess = c.st.updatedAt
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		publish(ch, snap)
	}
	return snap
}

// publish never blocks: when the buffer is full the oldest snapshot is
// dropped so the newest always reaches the reader.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:    c.id,
		Version:      c.st.version,
		Status:       c.st.status,
		Original:     c.st.original.View(),
		Working:      c.st.working.View(),
		Generated:    c.st.generated.View(),
		ActiveFilter: c.st.activeFilter,
		ErrorMessage: FailureMessage(c.st.locale, c.st.failure),
		ErrorKind:    c.st.failure,
		LastPrompt:   c.st.lastPrompt,
		Locale:       c.st.locale,
		UpdatedAt:    c.st.updatedAt,
	}
}
