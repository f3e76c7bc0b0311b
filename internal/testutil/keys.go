package testutil

import (
	"os"
	"sync"

	"permadeploy/internal/pd"
)

// FakeKeyProvider writes a dummy key file for each WithKeyFile call and
// records the paths it handed out so tests can check cleanup.
type FakeKeyProvider struct {
	Account *pd.Account
	Err     error
	Dir     string

	mu    sync.Mutex
	paths []string
}

var _ pd.KeyProvider = (*FakeKeyProvider)(nil)

// NewFakeKeyProvider returns a provider with an active account whose key
// files are created in dir.
func NewFakeKeyProvider(dir string) *FakeKeyProvider {
	return &FakeKeyProvider{
		Account: &pd.Account{ID: "acct-1", Nickname: "Primary", Address: "addr-1"},
		Dir:     dir,
	}
}

func (f *FakeKeyProvider) ActiveAccount() (*pd.Account, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Account, nil
}

func (f *FakeKeyProvider) WithKeyFile(fn func(path string) error) error {
	if f.Err != nil {
		return f.Err
	}
	file, err := os.CreateTemp(f.Dir, "key-*.json")
	if err != nil {
		return err
	}
	path := file.Name()
	defer os.Remove(path)
	file.WriteString(`{"kty":"RSA"}`)
	file.Close()

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return fn(path)
}

// Paths returns every key file path handed out so far.
func (f *FakeKeyProvider) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}
