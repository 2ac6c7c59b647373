/*
Package artifacts implements the Artifact Store (SPEC_FULL.md §6, spec.md
§4.6): the typed on-disk layout under a project root, and the safe
read/write primitives everything else in the system uses to produce and
consume it.

Every relative path given to the Store is resolved against a base
directory and checked against directory traversal the same way
cuemby/warren's manager resolves its data directory in NewManager — clean
the path, join it to the base, and reject anything that resolves outside
the base. A failed check is a hard invariant violation (StorageError), not
a recoverable condition.
*/
package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
)

// Layout directory names under the project root, per spec.md §4.6.
const (
	DirLoadProfiles = "results/load_profiles"
	DirPypsa        = "results/pypsa"
	DirStorage      = "storage"
	DirLogs         = "logs"
)

// Info describes one file the Store knows about.
type Info struct {
	Path    string // relative to the store's base
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Store is a path-escape-safe filesystem layout rooted at Base.
type Store struct {
	base string
}

// New creates a Store rooted at root. root is created if it does not
// exist, matching warren's os.MkdirAll(cfg.DataDir, 0755) idiom in
// manager.NewManager.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot resolve project root", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot create project root", err)
	}
	return &Store{base: abs}, nil
}

// Base returns the store's resolved absolute base directory.
func (s *Store) Base() string {
	return s.base
}

// resolve joins relPath to the base and rejects any result that escapes
// it (spec.md §8 invariant 4: resolve(base, p) lies within base).
func (s *Store) resolve(relPath string) (string, error) {
	full := filepath.Join(s.base, relPath)

	if full != s.base && !strings.HasPrefix(full, s.base+string(filepath.Separator)) {
		return "", apperr.New(apperr.KindStorageError, "path escapes project root: "+relPath)
	}
	return full, nil
}

// SaveJson writes value as JSON to relPath, creating parent directories
// as needed.
func (s *Store) SaveJson(relPath string, value interface{}) error {
	return s.saveEncoded(relPath, func() ([]byte, error) {
		return json.MarshalIndent(value, "", "  ")
	})
}

// ReadJson reads relPath and unmarshals it into out (a pointer).
func (s *Store) ReadJson(relPath string, out interface{}) error {
	data, err := s.ReadBytes(relPath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "artifact is not valid JSON: "+relPath, err)
	}
	return nil
}

// SaveBytes writes raw content to relPath, creating parent directories as
// needed. Used for the binary PyPSA network (.nc) artifacts, which are
// opaque to this package.
func (s *Store) SaveBytes(relPath string, content []byte) error {
	return s.saveEncoded(relPath, func() ([]byte, error) { return content, nil })
}

func (s *Store) saveEncoded(relPath string, encode func() ([]byte, error)) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	data, err := encode()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "value is not serializable", err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "cannot create artifact directory", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "cannot write artifact: "+relPath, err)
	}
	logging.WithComponent("artifacts").Debug().Str("path", relPath).Int("bytes", len(data)).Msg("saved artifact")
	return nil
}

// ReadBytes reads relPath's raw content.
func (s *Store) ReadBytes(relPath string) ([]byte, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindNotFound, "artifact not found: "+relPath)
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot read artifact: "+relPath, err)
	}
	return data, nil
}

// Delete removes relPath. Deleting a missing file succeeds silently, per
// spec.md §4.6.
func (s *Store) Delete(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindStorageError, "cannot delete artifact: "+relPath, err)
	}
	return nil
}

// Exists reports whether relPath names a file or directory that exists.
func (s *Store) Exists(relPath string) (bool, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindStorageError, "cannot stat artifact: "+relPath, err)
}

// Stat returns Info for relPath.
func (s *Store) Stat(relPath string) (Info, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, apperr.New(apperr.KindNotFound, "artifact not found: "+relPath)
		}
		return Info{}, apperr.Wrap(apperr.KindStorageError, "cannot stat artifact: "+relPath, err)
	}
	return Info{Path: relPath, Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

// List returns the entries of relDir, non-recursive, in directory order.
// A missing directory returns an empty list rather than NotFound, since
// an uninitialized results directory is a normal startup state.
func (s *Store) List(relDir string) ([]Info, error) {
	full, err := s.resolve(relDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot list artifact directory: "+relDir, err)
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Path:    filepath.Join(relDir, e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return out, nil
}

// LoadProfilePath returns the layout path for a load profile's JSON file.
func LoadProfilePath(profileID string) string {
	return filepath.Join(DirLoadProfiles, profileID+".json")
}

// PypsaNetworkPath returns the layout path for a scenario's network file.
func PypsaNetworkPath(scenarioName string) string {
	return filepath.Join(DirPypsa, scenarioName, scenarioName+".nc")
}

// PypsaScenarioDir returns the layout path for a scenario's directory.
func PypsaScenarioDir(scenarioName string) string {
	return filepath.Join(DirPypsa, scenarioName)
}
