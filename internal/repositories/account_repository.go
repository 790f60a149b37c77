package repositories

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"repurposer/internal/metrics"
	"repurposer/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrCorruptStore    = errors.New("users store is unreadable")
)

//go:embed seed/users.json
var bundledUsers []byte

// AccountRepository owns the on-disk account collection. Every write replaces
// the whole file.
type AccountRepository interface {
	LoadAll() ([]*models.Account, error)
	SaveAll(accounts []*models.Account) error
	GetByEmail(email string) (*models.Account, error)
	Exists(email string) (bool, error)

	// Mutate runs load -> fn -> save while holding the mutation lock, so
	// concurrent mutations never interleave. Nothing is written when fn
	// returns an error or leaves the set untouched.
	Mutate(fn func(set *AccountSet) error) error
}

type fileAccountRepository struct {
	path       string
	legacyPath string

	rw       sync.RWMutex // guards the file itself
	mutation sync.Mutex   // serializes load-mutate-save cycles
	log      *logrus.Entry
}

// NewFileAccountRepository prepares the users file at path, seeding it from
// legacyPath, then the bundled default, then an empty list.
func NewFileAccountRepository(path, legacyPath string) (AccountRepository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve users file: %w", err)
	}
	r := &fileAccountRepository{
		path: filepath.Clean(abs),
		log:  logrus.WithField("component", "account_repository"),
	}
	if legacyPath != "" {
		if legacyAbs, err := filepath.Abs(legacyPath); err == nil {
			r.legacyPath = filepath.Clean(legacyAbs)
		}
	}

	r.rw.Lock()
	defer r.rw.Unlock()
	if err := r.ensureStorageReady(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadAll returns every stored account. A missing or blank file is an empty
// collection; anything that fails to parse is ErrCorruptStore.
func (r *fileAccountRepository) LoadAll() ([]*models.Account, error) {
	r.rw.RLock()
	defer r.rw.RUnlock()

	accounts, err := r.read()
	metrics.RecordStoreOperation("load", err)
	if err != nil {
		r.log.WithError(err).Error("[store][load] failed")
	}
	return accounts, err
}

func (r *fileAccountRepository) SaveAll(accounts []*models.Account) error {
	r.rw.Lock()
	defer r.rw.Unlock()

	err := r.write(accounts)
	metrics.RecordStoreOperation("save", err)
	if err != nil {
		r.log.WithError(err).Error("[store][save] failed")
	}
	return err
}

func (r *fileAccountRepository) GetByEmail(email string) (*models.Account, error) {
	target := NormalizeEmail(email)
	if target == "" {
		return nil, ErrAccountNotFound
	}
	accounts, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if NormalizeEmail(a.Email) == target {
			return a, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (r *fileAccountRepository) Exists(email string) (bool, error) {
	_, err := r.GetByEmail(email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *fileAccountRepository) Mutate(fn func(set *AccountSet) error) error {
	r.mutation.Lock()
	defer r.mutation.Unlock()

	accounts, err := r.LoadAll()
	if err != nil {
		return err
	}
	set := NewAccountSet(accounts)
	if dropped := set.Dropped(); dropped > 0 {
		r.log.WithField("dropped", dropped).Warn("[store][mutate] duplicate emails collapsed to first record")
		set.Touch()
	}

	if err := fn(set); err != nil {
		return err
	}
	if !set.Dirty() {
		return nil
	}
	return r.SaveAll(set.All())
}

func (r *fileAccountRepository) read() ([]*models.Account, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []*models.Account{}, nil
	}

	var accounts []*models.Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	out := make([]*models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// write must be called with the write lock held.
func (r *fileAccountRepository) write(accounts []*models.Account) error {
	if err := r.ensureStorageReady(); err != nil {
		return err
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	return writeFileAtomic(r.path, data)
}

// ensureStorageReady must be called with the write lock held.
func (r *fileAccountRepository) ensureStorageReady() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat users file: %w", err)
	}

	if r.legacyPath != "" && r.legacyPath != r.path {
		if legacy, err := os.ReadFile(r.legacyPath); err == nil {
			r.log.WithField("legacy", r.legacyPath).Info("[store][seed] copying legacy users file")
			return writeFileAtomic(r.path, legacy)
		}
	}
	if len(bytes.TrimSpace(bundledUsers)) > 0 {
		r.log.Info("[store][seed] writing bundled users file")
		return writeFileAtomic(r.path, bundledUsers)
	}
	return writeFileAtomic(r.path, []byte("[]"))
}

// writeFileAtomic writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp users file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp users file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp users file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp users file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// NormalizeEmail is the canonical account key: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
