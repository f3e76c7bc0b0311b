package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"

	"permadeploy/internal/pd"
)

// AgeFileStore implements pd.SecretStore as a single age-encrypted JSON
// document. By default the document is encrypted to an X25519 identity kept
// in an owner-only key file next to it, generated on first write. When a
// passphrase is configured, age's scrypt-based passphrase encryption is used
// instead and no identity file is involved.
type AgeFileStore struct {
	path         string
	identityPath string
	passphrase   string
	workFactor   int // scrypt work factor; 0 keeps age's default

	mu    sync.Mutex
	cache map[string]string
}

var _ pd.SecretStore = (*AgeFileStore)(nil)

// NewAgeFileStore creates a store backed by path. identityPath is ignored
// when passphrase is non-empty.
func NewAgeFileStore(path, identityPath, passphrase string) *AgeFileStore {
	return &AgeFileStore{
		path:         path,
		identityPath: identityPath,
		passphrase:   passphrase,
	}
}

// Get returns the value stored for service/key.
func (s *AgeFileStore) Get(service, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[secretKey(service, key)]
	return v, ok, nil
}

// Set stores value for service/key and rewrites the encrypted document.
func (s *AgeFileStore) Set(service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	next := cloneValues(values)
	next[secretKey(service, key)] = value
	return s.save(next)
}

// Remove deletes service/key. Removing a missing key is a no-op.
func (s *AgeFileStore) Remove(service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	k := secretKey(service, key)
	if _, ok := values[k]; !ok {
		return nil
	}
	next := cloneValues(values)
	delete(next, k)
	return s.save(next)
}

// load decrypts the document once and caches it for the store's lifetime.
func (s *AgeFileStore) load() (map[string]string, error) {
	if s.cache != nil {
		return s.cache, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cache = map[string]string{}
		return s.cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret store: %w", err)
	}

	identity, err := s.identity()
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting secret store: %w", err)
	}

	values := map[string]string{}
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("decoding secret store: %w", err)
	}
	s.cache = values
	return values, nil
}

// save encrypts values and atomically replaces the document (temp file + rename).
func (s *AgeFileStore) save(values map[string]string) error {
	recipient, err := s.recipient()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating secret store directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".secrets-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	w, err := age.Encrypt(tmpFile, recipient)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if err := json.NewEncoder(w).Encode(values); err != nil {
		tmpFile.Close()
		return fmt.Errorf("encoding secrets: %w", err)
	}
	if err := w.Close(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("finalizing encrypted secrets: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing secret store: %w", err)
	}

	success = true
	s.cache = values
	return nil
}

func (s *AgeFileStore) recipient() (age.Recipient, error) {
	if s.passphrase != "" {
		r, err := age.NewScryptRecipient(s.passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt recipient: %w", err)
		}
		if s.workFactor > 0 {
			r.SetWorkFactor(s.workFactor)
		}
		return r, nil
	}

	identity, err := s.loadOrCreateX25519()
	if err != nil {
		return nil, err
	}
	return identity.Recipient(), nil
}

func (s *AgeFileStore) identity() (age.Identity, error) {
	if s.passphrase != "" {
		id, err := age.NewScryptIdentity(s.passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		return id, nil
	}

	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading secret store identity: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing secret store identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", s.identityPath)
	}
	return identities[0], nil
}

// loadOrCreateX25519 reads the identity file, generating it on first use.
func (s *AgeFileStore) loadOrCreateX25519() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err == nil {
		return age.ParseX25519Identity(strings.TrimSpace(string(data)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading secret store identity: %w", err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}
	f, err := os.OpenFile(s.identityPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, identity.String()+"\n"); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	return identity, nil
}

func secretKey(service, key string) string {
	return service + "/" + key
}

func cloneValues(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
