package service

import (
	"context"
	"errors"
	"time"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/convert"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/password"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AccountService is the database orchestrator for the account family.
// Credential checks are recorded through the login service when one is set.
type AccountService struct {
	lifecycle
	db     *gorm.DB
	store  *store.Store[*core.Account]
	logins *LoginService
	log    zerolog.Logger
}

// NewAccountService creates an account orchestrator over db feeding st.
func NewAccountService(db *gorm.DB, st *store.Store[*core.Account], log zerolog.Logger) *AccountService {
	return &AccountService{
		db:    db,
		store: st,
		log:   log.With().Str("service", "accounts").Logger(),
	}
}

// Store returns the canonical account store.
func (s *AccountService) Store() *store.Store[*core.Account] { return s.store }

// SetLoginService wires the login audit recorder.
func (s *AccountService) SetLoginService(l *LoginService) { s.logins = l }

// Connect verifies database reachability and moves the service to the
// connected state.
func (s *AccountService) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		s.setState(StateDisconnected)
		return &StoreError{Op: "connecting account service", Err: err}
	}
	s.setState(StateConnected)
	return nil
}

// Disconnect moves the service back to the disconnected state.
func (s *AccountService) Disconnect() {
	s.setState(StateDisconnected)
}

// Insert persists a new account, hashing plaintext into the stored
// credential, and adds the persisted entity to the store.
func (s *AccountService) Insert(ctx context.Context, a *core.Account, plaintext string) (*core.Account, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, &StoreError{Op: "hashing credential", Err: err}
	}
	a.PasswordHash = hash

	row := convert.AccountToModel(a)
	row.ID = 0

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, &StoreError{Op: "inserting account", Err: err}
	}

	out := convert.AccountToCore(row)
	s.store.Add(out)
	return out, nil
}

// Fetch reads one account straight from the database. Returns (nil, nil)
// when absent.
func (s *AccountService) Fetch(ctx context.Context, id uint) (*core.Account, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var row model.Account
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "fetching account", Err: err}
	}
	return convert.AccountToCore(row), nil
}

// FetchByCredential reads the account with the given login and verifies the
// secret against its stored hash. Returns (nil, nil) when the login is
// unknown or the secret does not match; either outcome is recorded in the
// login audit when a login service is wired.
func (s *AccountService) FetchByCredential(ctx context.Context, login, secret, remoteAddr string) (*core.Account, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var row model.Account
	err := s.db.WithContext(ctx).Where("login = ?", login).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.recordLogin(ctx, 0, login, false, remoteAddr)
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "fetching account by credential", Err: err}
	}

	if !password.Verify(row.PasswordHash, secret) {
		s.recordLogin(ctx, row.ID, login, false, remoteAddr)
		return nil, nil
	}

	s.recordLogin(ctx, row.ID, login, true, remoteAddr)
	return convert.AccountToCore(row), nil
}

// recordLogin is best-effort: audit failures are logged, never surfaced to
// the credential check itself.
func (s *AccountService) recordLogin(ctx context.Context, accountID uint, login string, success bool, remoteAddr string) {
	if s.logins == nil {
		return
	}
	_, err := s.logins.Insert(ctx, &core.LoginRecord{
		AccountID:  accountID,
		Login:      login,
		Time:       time.Now().UTC(),
		Success:    success,
		RemoteAddr: remoteAddr,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("login", login).Msg("Recording login attempt failed")
	}
}

// Update persists changes to an existing account, then replaces the matching
// store entry. The stored credential is not touched; use ChangePassword.
func (s *AccountService) Update(ctx context.Context, a *core.Account) (*core.Account, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	row := convert.AccountToModel(a)

	if err := s.db.WithContext(ctx).Omit("created_at").Save(&row).Error; err != nil {
		return nil, &StoreError{Op: "updating account", Err: err}
	}

	out := convert.AccountToCore(row)
	if !s.store.Replace(out) {
		s.log.Debug().Uint("id", out.EntityID()).Msg("Updated account not cached, cache unchanged")
	}
	return out, nil
}

// ChangePassword re-hashes and persists a new credential for the account.
func (s *AccountService) ChangePassword(ctx context.Context, a *core.Account, plaintext string) (*core.Account, error) {
	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, &StoreError{Op: "hashing credential", Err: err}
	}
	a.PasswordHash = hash
	return s.Update(ctx, a)
}

// Delete removes an account. Accounts do not cascade.
func (s *AccountService) Delete(ctx context.Context, a *core.Account) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&model.Account{}, a.ID).Error; err != nil {
		return &StoreError{Op: "deleting account", Err: err}
	}
	s.store.Remove(a)
	return nil
}

// FetchAll reads every account from the database. Does not mutate the cache.
func (s *AccountService) FetchAll(ctx context.Context) ([]*core.Account, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var rows []model.Account
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "fetching accounts", Err: err}
	}

	accounts := make([]*core.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, convert.AccountToCore(row))
	}
	return accounts, nil
}

// Rehydrate discards the cached account family and repopulates it from a
// fresh bulk read, as one atomic-appearing step.
func (s *AccountService) Rehydrate(ctx context.Context) error {
	accounts, err := s.FetchAll(ctx)
	if err != nil {
		return err
	}
	s.store.ResetTo(accounts)
	s.markHydrated()
	s.log.Info().Int("count", len(accounts)).Msg("Account cache rehydrated")
	return nil
}
