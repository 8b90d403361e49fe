package service

import (
	"context"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/convert"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LoginService is the database orchestrator for the login audit family.
// Login records are append-only: no update or delete surface.
type LoginService struct {
	lifecycle
	db    *gorm.DB
	store *store.Store[*core.LoginRecord]
	log   zerolog.Logger
}

// NewLoginService creates a login audit orchestrator over db feeding st.
func NewLoginService(db *gorm.DB, st *store.Store[*core.LoginRecord], log zerolog.Logger) *LoginService {
	return &LoginService{
		db:    db,
		store: st,
		log:   log.With().Str("service", "logins").Logger(),
	}
}

// Store returns the canonical login record store.
func (s *LoginService) Store() *store.Store[*core.LoginRecord] { return s.store }

// Connect verifies database reachability and moves the service to the
// connected state.
func (s *LoginService) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		s.setState(StateDisconnected)
		return &StoreError{Op: "connecting login service", Err: err}
	}
	s.setState(StateConnected)
	return nil
}

// Disconnect moves the service back to the disconnected state.
func (s *LoginService) Disconnect() {
	s.setState(StateDisconnected)
}

// Insert persists a login record and adds the persisted entity to the store.
func (s *LoginService) Insert(ctx context.Context, l *core.LoginRecord) (*core.LoginRecord, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	row := convert.LoginRecordToModel(l)
	row.ID = 0

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, &StoreError{Op: "inserting login record", Err: err}
	}

	out := convert.LoginRecordToCore(row)
	s.store.Add(out)
	return out, nil
}

// FetchAll reads every login record from the database, oldest first. Does
// not mutate the cache.
func (s *LoginService) FetchAll(ctx context.Context) ([]*core.LoginRecord, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var rows []model.LoginRecord
	if err := s.db.WithContext(ctx).Order("time, id").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "fetching login records", Err: err}
	}

	records := make([]*core.LoginRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, convert.LoginRecordToCore(row))
	}
	return records, nil
}

// Rehydrate discards the cached login records and repopulates them from a
// fresh bulk read, as one atomic-appearing step.
func (s *LoginService) Rehydrate(ctx context.Context) error {
	records, err := s.FetchAll(ctx)
	if err != nil {
		return err
	}
	s.store.ResetTo(records)
	s.markHydrated()
	s.log.Info().Int("count", len(records)).Msg("Login record cache rehydrated")
	return nil
}
