/*
Package discovery implements Result Discovery (SPEC_FULL.md §6, spec.md
§4.7): reconciling a possibly-stale in-memory index against whatever
artifacts actually sit on disk.

Structurally this is cuemby/warren's pkg/reconciler.Reconciler with the
ticker-driven background loop removed — spec.md §4.7 is explicit that
"refresh is explicit": callers invoke Rescan when they need a fresh view,
or when an index lookup misses. The per-category scan-and-rebuild shape
(one method per artifact category, building a fresh index under a single
lock) is kept as-is from the reconciler.
*/
package discovery

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/artifacts"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
)

// LoadProfileMeta is the index entry extracted from one load-profile file.
type LoadProfileMeta struct {
	ProfileID      string                 `json:"profileId"`
	Method         string                 `json:"method"`
	GenerationTime time.Time              `json:"generationTime"`
	YearsGenerated []int                  `json:"yearsGenerated"`
	Summary        map[string]interface{} `json:"summary"`
}

// NetworkMeta is the index entry for one discovered PyPSA network.
type NetworkMeta struct {
	ScenarioName string
	Size         int64
	ModTime      time.Time
}

// loadProfileFile is the subset of a load-profile artifact's fields
// Discovery reads; the rest of the file is opaque to this package.
type loadProfileFile struct {
	ProfileID      string                   `json:"profileId"`
	Method         string                   `json:"method"`
	GenerationTime time.Time                `json:"generationTime"`
	YearsGenerated []int                    `json:"yearsGenerated"`
	Statistics     map[string]interface{}   `json:"statistics"`
	Data           []map[string]interface{} `json:"data"`
}

// Index is the in-memory view built by Rescan.
type Index struct {
	mu       sync.RWMutex
	profiles map[string]LoadProfileMeta
	networks map[string]NetworkMeta
	lastScan time.Time
}

// New creates an empty Index. Call Rescan to populate it.
func New() *Index {
	return &Index{
		profiles: make(map[string]LoadProfileMeta),
		networks: make(map[string]NetworkMeta),
	}
}

// Rescan rebuilds the index from disk, replacing the previous snapshot
// wholesale. Errors reading an individual artifact are logged and that
// artifact is skipped rather than failing the whole scan.
func (idx *Index) Rescan(store *artifacts.Store) error {
	log := logging.WithComponent("discovery")

	profiles, err := scanProfiles(store, log)
	if err != nil {
		return err
	}
	networks, err := scanNetworks(store, log)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.profiles = profiles
	idx.networks = networks
	idx.lastScan = time.Now()
	idx.mu.Unlock()

	log.Info().Int("profiles", len(profiles)).Int("networks", len(networks)).Msg("rescan complete")
	return nil
}

func scanProfiles(store *artifacts.Store, log zerolog.Logger) (map[string]LoadProfileMeta, error) {
	entries, err := store.List(artifacts.DirLoadProfiles)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot scan load profiles", err)
	}

	out := make(map[string]LoadProfileMeta, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		var file loadProfileFile
		if err := store.ReadJson(e.Path, &file); err != nil {
			log.Warn().Str("path", e.Path).Err(err).Msg("skipping unreadable load profile artifact")
			continue
		}

		summary := file.Statistics
		if summary == nil {
			summary = computeSummary(file.Data)
		}

		profileID := file.ProfileID
		if profileID == "" {
			profileID = profileIDFromPath(e.Path)
		}

		out[profileID] = LoadProfileMeta{
			ProfileID:      profileID,
			Method:         file.Method,
			GenerationTime: file.GenerationTime,
			YearsGenerated: file.YearsGenerated,
			Summary:        summary,
		}
	}
	return out, nil
}

func scanNetworks(store *artifacts.Store, log zerolog.Logger) (map[string]NetworkMeta, error) {
	dirs, err := store.List(artifacts.DirPypsa)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "cannot scan pypsa networks", err)
	}

	out := make(map[string]NetworkMeta, len(dirs))
	for _, d := range dirs {
		if !d.IsDir {
			continue
		}
		scenarioName := lastPathElement(d.Path)
		info, err := store.Stat(artifacts.PypsaNetworkPath(scenarioName))
		if err != nil {
			log.Debug().Str("scenario", scenarioName).Msg("scenario directory has no network file yet")
			continue
		}
		out[scenarioName] = NetworkMeta{ScenarioName: scenarioName, Size: info.Size, ModTime: info.ModTime}
	}
	return out, nil
}

// Profile returns the indexed metadata for profileID, rescanning once on
// a miss in case the index is simply stale.
func (idx *Index) Profile(store *artifacts.Store, profileID string) (LoadProfileMeta, bool, error) {
	idx.mu.RLock()
	meta, ok := idx.profiles[profileID]
	idx.mu.RUnlock()
	if ok {
		return meta, true, nil
	}

	if err := idx.Rescan(store); err != nil {
		return LoadProfileMeta{}, false, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	meta, ok = idx.profiles[profileID]
	return meta, ok, nil
}

// Profiles returns every indexed profile, in unspecified order.
func (idx *Index) Profiles() []LoadProfileMeta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]LoadProfileMeta, 0, len(idx.profiles))
	for _, m := range idx.profiles {
		out = append(out, m)
	}
	return out
}

// Networks returns every indexed network, in unspecified order.
func (idx *Index) Networks() []NetworkMeta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]NetworkMeta, 0, len(idx.networks))
	for _, m := range idx.networks {
		out = append(out, m)
	}
	return out
}

// LastScan reports when Rescan last completed successfully.
func (idx *Index) LastScan() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lastScan
}

func computeSummary(data []map[string]interface{}) map[string]interface{} {
	if len(data) == 0 {
		return map[string]interface{}{}
	}
	var total float64
	var peak float64
	for _, row := range data {
		v, ok := row["value"].(float64)
		if !ok {
			continue
		}
		total += v
		if v > peak {
			peak = v
		}
	}
	return map[string]interface{}{
		"total": total,
		"peak":  peak,
		"count": len(data),
	}
}

func profileIDFromPath(path string) string {
	return trimJSONExt(lastPathElement(path))
}

func lastPathElement(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
