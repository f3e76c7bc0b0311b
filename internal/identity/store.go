package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"permadeploy/internal/pd"
)

const (
	DefaultService = "permadeploy"

	keyAccounts      = "accounts"
	keyActiveAccount = "active_account"
	keyWalletPrefix  = "wallet_"

	legacyKeyWallet  = "wallet_jwk"
	legacyKeyAddress = "wallet_address"
)

// Store manages signing accounts. Account records live in the secret store
// as a JSON list; each account's key material is stored under its own key.
type Store struct {
	secrets pd.SecretStore
	service string
	keyDir  string
	clock   pd.Clock
	ids     pd.IDGenerator
	logger  pd.Logger

	mu sync.Mutex
}

var _ pd.KeyProvider = (*Store)(nil)

// NewStore creates an identity store over secrets. Scoped key files are
// created in keyDir, or the system temp dir when keyDir is empty.
func NewStore(secrets pd.SecretStore, service, keyDir string, clock pd.Clock, ids pd.IDGenerator, logger pd.Logger) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{
		secrets: secrets,
		service: service,
		keyDir:  keyDir,
		clock:   clock,
		ids:     ids,
		logger:  pd.OrNop(logger),
	}
}

// AddAccount validates keyMaterial, stores it and appends a new account. The
// first account added becomes active.
func (s *Store) AddAccount(keyMaterial []byte, nickname string) (*pd.Account, error) {
	key, err := ParseKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	address, err := key.Address()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Address == address {
			return nil, fmt.Errorf("%w: %s (%s)", pd.ErrDuplicateAccount, a.Nickname, address)
		}
	}

	if nickname == "" {
		nickname = fmt.Sprintf("Account %d", len(accounts)+1)
	}
	now := s.clock.Now()
	account := &pd.Account{
		ID:        s.ids.New(),
		Nickname:  nickname,
		Address:   address,
		CreatedAt: now,
		LastUsed:  now,
	}

	if err := s.secrets.Set(s.service, keyWalletPrefix+account.ID, string(key.Raw)); err != nil {
		return nil, fmt.Errorf("storing key material: %w", err)
	}
	accounts = append(accounts, account)
	if err := s.saveAccounts(accounts); err != nil {
		return nil, err
	}

	active, err := s.activeID()
	if err != nil {
		return nil, err
	}
	if active == "" {
		if err := s.secrets.Set(s.service, keyActiveAccount, account.ID); err != nil {
			return nil, fmt.Errorf("setting active account: %w", err)
		}
	}

	s.logger.Info("account added", "id", account.ID, "nickname", account.Nickname, "address", address)
	return account, nil
}

// RemoveAccount deletes an account and its key material. If it was active the
// first remaining account is promoted, or the active pointer is cleared.
func (s *Store) RemoveAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts()
	if err != nil {
		return err
	}
	idx := indexOf(accounts, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", pd.ErrAccountNotFound, id)
	}
	remaining := append(accounts[:idx:idx], accounts[idx+1:]...)

	if err := s.secrets.Remove(s.service, keyWalletPrefix+id); err != nil {
		return fmt.Errorf("removing key material: %w", err)
	}
	if err := s.saveAccounts(remaining); err != nil {
		return err
	}

	active, err := s.activeID()
	if err != nil {
		return err
	}
	if active == id {
		if len(remaining) > 0 {
			err = s.secrets.Set(s.service, keyActiveAccount, remaining[0].ID)
		} else {
			err = s.secrets.Remove(s.service, keyActiveAccount)
		}
		if err != nil {
			return fmt.Errorf("updating active account: %w", err)
		}
	}

	s.logger.Info("account removed", "id", id)
	return nil
}

// SwitchAccount makes id the active account and updates its last-used time.
func (s *Store) SwitchAccount(id string) (*pd.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts()
	if err != nil {
		return nil, err
	}
	idx := indexOf(accounts, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", pd.ErrAccountNotFound, id)
	}
	accounts[idx].LastUsed = s.clock.Now()
	if err := s.saveAccounts(accounts); err != nil {
		return nil, err
	}
	if err := s.secrets.Set(s.service, keyActiveAccount, id); err != nil {
		return nil, fmt.Errorf("setting active account: %w", err)
	}
	return accounts[idx], nil
}

// ActiveAccount returns the active account, or ErrNoActiveAccount.
func (s *Store) ActiveAccount() (*pd.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeAccount()
}

func (s *Store) activeAccount() (*pd.Account, error) {
	active, err := s.activeID()
	if err != nil {
		return nil, err
	}
	if active == "" {
		return nil, pd.ErrNoActiveAccount
	}
	accounts, err := s.loadAccounts()
	if err != nil {
		return nil, err
	}
	idx := indexOf(accounts, active)
	if idx < 0 {
		return nil, fmt.Errorf("%w: active account %s is missing", pd.ErrNoActiveAccount, active)
	}
	return accounts[idx], nil
}

// ListAccounts returns all accounts in insertion order.
func (s *Store) ListAccounts() ([]*pd.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAccounts()
}

// RenameAccount changes an account's nickname.
func (s *Store) RenameAccount(id, nickname string) (*pd.Account, error) {
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname must not be empty", pd.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts()
	if err != nil {
		return nil, err
	}
	idx := indexOf(accounts, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", pd.ErrAccountNotFound, id)
	}
	accounts[idx].Nickname = nickname
	if err := s.saveAccounts(accounts); err != nil {
		return nil, err
	}
	return accounts[idx], nil
}

// MigrateLegacy converts the single-wallet layout into an account. It is a
// no-op once accounts exist and never fails: problems are logged.
func (s *Store) MigrateLegacy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.migrateLegacy(); err != nil {
		s.logger.Warn("legacy wallet migration failed", "error", err)
	}
}

func (s *Store) migrateLegacy() error {
	accounts, err := s.loadAccounts()
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		return nil
	}

	raw, ok, err := s.secrets.Get(s.service, legacyKeyWallet)
	if err != nil {
		return fmt.Errorf("reading legacy wallet: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	address, ok, err := s.secrets.Get(s.service, legacyKeyAddress)
	if err != nil {
		return fmt.Errorf("reading legacy address: %w", err)
	}
	if !ok || address == "" {
		address, err = DeriveAddress([]byte(raw))
		if err != nil {
			return err
		}
	}

	now := s.clock.Now()
	account := &pd.Account{
		ID:        s.ids.New(),
		Nickname:  "Primary",
		Address:   address,
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := s.secrets.Set(s.service, keyWalletPrefix+account.ID, raw); err != nil {
		return fmt.Errorf("storing migrated key material: %w", err)
	}
	if err := s.saveAccounts([]*pd.Account{account}); err != nil {
		return err
	}
	if err := s.secrets.Set(s.service, keyActiveAccount, account.ID); err != nil {
		return fmt.Errorf("setting active account: %w", err)
	}

	for _, k := range []string{legacyKeyWallet, legacyKeyAddress} {
		if err := s.secrets.Remove(s.service, k); err != nil {
			s.logger.Warn("removing legacy key failed", "key", k, "error", err)
		}
	}
	s.logger.Info("migrated legacy wallet", "id", account.ID, "address", address)
	return nil
}

// KeyMaterial returns the stored key material for an account.
func (s *Store) KeyMaterial(id string) ([]byte, error) {
	raw, ok, err := s.secrets.Get(s.service, keyWalletPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("reading key material: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: key material for %s", pd.ErrAccountNotFound, id)
	}
	return []byte(raw), nil
}

// WithKeyFile writes the active account's key material to an owner-only
// temporary file, calls fn with its path, and removes the file when fn
// returns, fails or panics.
func (s *Store) WithKeyFile(fn func(path string) error) error {
	s.mu.Lock()
	account, err := s.activeAccount()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	raw, err := s.KeyMaterial(account.ID)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.keyDir, ".wallet-*.json")
	if err != nil {
		return fmt.Errorf("creating key file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := f.Chmod(0600); err != nil {
		f.Close()
		return fmt.Errorf("restricting key file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing key file: %w", err)
	}

	return fn(path)
}

func (s *Store) activeID() (string, error) {
	id, _, err := s.secrets.Get(s.service, keyActiveAccount)
	if err != nil {
		return "", fmt.Errorf("reading active account: %w", err)
	}
	return id, nil
}

func (s *Store) loadAccounts() ([]*pd.Account, error) {
	raw, ok, err := s.secrets.Get(s.service, keyAccounts)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var accounts []*pd.Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) saveAccounts(accounts []*pd.Account) error {
	if accounts == nil {
		accounts = []*pd.Account{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}
	if err := s.secrets.Set(s.service, keyAccounts, string(data)); err != nil {
		return fmt.Errorf("saving accounts: %w", err)
	}
	return nil
}

func indexOf(accounts []*pd.Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
