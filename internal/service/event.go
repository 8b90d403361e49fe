package service

import (
	"context"
	"errors"
	"time"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/convert"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// EventService is the database orchestrator for the event family.
type EventService struct {
	lifecycle
	db    *gorm.DB
	store *store.Store[core.Event]
	log   zerolog.Logger
}

// NewEventService creates an event orchestrator over db feeding st.
func NewEventService(db *gorm.DB, st *store.Store[core.Event], log zerolog.Logger) *EventService {
	return &EventService{
		db:    db,
		store: st,
		log:   log.With().Str("service", "events").Logger(),
	}
}

// Store returns the canonical event store.
func (s *EventService) Store() *store.Store[core.Event] { return s.store }

// Connect verifies database reachability and moves the service to the
// connected state.
func (s *EventService) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		s.setState(StateDisconnected)
		return &StoreError{Op: "connecting event service", Err: err}
	}
	s.setState(StateConnected)
	return nil
}

// Disconnect moves the service back to the disconnected state.
func (s *EventService) Disconnect() {
	s.setState(StateDisconnected)
}

// Insert persists a new event and adds the persisted entity to the store.
// A zero OccurredAt is stamped with the current time.
func (s *EventService) Insert(ctx context.Context, e core.Event) (core.Event, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	if e.Base().OccurredAt.IsZero() {
		e.Base().OccurredAt = time.Now().UTC()
	}

	row, err := convert.EventToModel(e)
	if err != nil {
		return nil, err
	}
	row.ID = 0

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, &StoreError{Op: "inserting event", Err: err}
	}

	out, err := convert.EventToCore(row)
	if err != nil {
		return nil, err
	}

	s.store.Add(out)
	return out, nil
}

// Fetch reads one event straight from the database. Returns (nil, nil) when
// absent.
func (s *EventService) Fetch(ctx context.Context, id uint) (core.Event, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var row model.Event
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "fetching event", Err: err}
	}
	return convert.EventToCore(row)
}

// FetchAll reads every event from the database, oldest first. Does not
// mutate the cache.
func (s *EventService) FetchAll(ctx context.Context) ([]core.Event, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var rows []model.Event
	if err := s.db.WithContext(ctx).Order("occurred_at, id").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "fetching events", Err: err}
	}

	events := make([]core.Event, 0, len(rows))
	for _, row := range rows {
		e, err := convert.EventToCore(row)
		if err != nil {
			s.log.Warn().Err(err).Uint("id", row.ID).Msg("Skipping unconvertible event row")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Update persists changes to an existing event (typically closing it), then
// replaces the matching store entry. A cache miss leaves the cache unchanged.
func (s *EventService) Update(ctx context.Context, e core.Event) (core.Event, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	row, err := convert.EventToModel(e)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit("created_at").Save(&row).Error; err != nil {
		return nil, &StoreError{Op: "updating event", Err: err}
	}

	out, err := convert.EventToCore(row)
	if err != nil {
		return nil, err
	}

	if !s.store.Replace(out) {
		s.log.Debug().Uint("id", out.EntityID()).Msg("Updated event not cached, cache unchanged")
	}
	return out, nil
}

// Close marks an open event closed and persists the change.
func (s *EventService) Close(ctx context.Context, e core.Event) (core.Event, error) {
	e.Base().Open = false
	return s.Update(ctx, e)
}

// Delete removes an event. Events do not cascade.
func (s *EventService) Delete(ctx context.Context, e core.Event) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&model.Event{}, e.EntityID()).Error; err != nil {
		return &StoreError{Op: "deleting event", Err: err}
	}
	s.store.Remove(e)
	return nil
}

// Rehydrate discards the cached event family and repopulates it from a fresh
// bulk read, as one atomic-appearing step.
func (s *EventService) Rehydrate(ctx context.Context) error {
	events, err := s.FetchAll(ctx)
	if err != nil {
		return err
	}
	s.store.ResetTo(events)
	s.markHydrated()
	s.log.Info().Int("count", len(events)).Msg("Event cache rehydrated")
	return nil
}
