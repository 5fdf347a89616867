// Package manifest records which files a run produced so later stages
// consume an explicit list instead of scanning directories.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"defi-bi-etl/internal/domain"
)

// Kind names what a file contains.
type Kind string

const (
	KindGlobal        Kind = "global"
	KindGlobalDeFi    Kind = "global_defi"
	KindCategories    Kind = "categories"
	KindMarkets       Kind = "markets"
	KindTokenHistory  Kind = "token_history"
	KindProtocols     Kind = "protocols"
	KindProtocolTvl   Kind = "protocol_tvl"
	KindChainsTvl     Kind = "chains_tvl"
	KindStablecoins   Kind = "stablecoins"
	KindDexPairs      Kind = "dex_pairs"
	KindTrending      Kind = "trending"
	KindBridges       Kind = "bridges"
	KindYields        Kind = "yields"
	KindChainStats    Kind = "chain_stats"
	KindDexStats      Kind = "dex_stats"
	KindTvlCheckpoint Kind = "tvl_checkpoint"
	KindTable         Kind = "table"
	KindSummary       Kind = "summary"
)

// Entry is one file produced by a stage.
type Entry struct {
	Source domain.Source `yaml:"source"`
	Kind   Kind          `yaml:"kind"`
	Path   string        `yaml:"path"`
	Key    string        `yaml:"key,omitempty"` // token id, slug or chain the file is about
}

// Manifest is the ordered list of files of one run.
type Manifest struct {
	RunID     string    `yaml:"run_id"`
	CreatedAt time.Time `yaml:"created_at"`
	Entries   []Entry   `yaml:"entries"`

	mu sync.Mutex
}

// New creates an empty manifest with a fresh run id.
func New(now time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: now.UTC(),
	}
}

// Add appends an entry.
func (m *Manifest) Add(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
}

// Merge appends all entries of other.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	for _, e := range other.All() {
		m.Add(e)
	}
}

// All returns a copy of the entries in insertion order.
func (m *Manifest) All() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.Entries...)
}

// Filter returns entries of the given kind in insertion order.
func (m *Manifest) Filter(kind Kind) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Paths returns the paths of entries of the given kind.
func (m *Manifest) Paths(kind Kind) []string {
	entries := m.Filter(kind)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

// Latest returns the last entry of kind, if any.
func (m *Manifest) Latest(kind Kind) (Entry, bool) {
	entries := m.Filter(kind)
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// Save writes the manifest as YAML, creating parent directories.
func (m *Manifest) Save(path string) error {
	m.mu.Lock()
	data, err := yaml.Marshal(m)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
