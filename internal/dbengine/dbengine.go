// Package dbengine orchestrates the whole system: table registry and
// persistence, CSV import (local, HTTP(S), and s3://), and SQL query
// execution, wiring internal/store, internal/csvload, internal/query and
// internal/engine together behind one Database handle. The registry is
// sync.Mutex-guarded, its config is persisted as JSON at startup, and its
// manifest directory is scanned and replayed on reopen.
package dbengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gleyba/test-db/internal/csvload"
	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/store"
)

// Config holds the high-level settings for a Database, persisted alongside
// it so a restart reloads the same knobs.
type Config struct {
	WorkingDirectory string    `json:"-"`
	CreatedTimestamp int64     `json:"created_timestamp"`
	DatabaseID       uuid.UUID `json:"database_id"`
	MaxRowsPerStripe int       `json:"max_rows_per_stripe"`
}

const configFileName = "testdb_config.json"

// TableMeta is a table's persisted manifest entry: enough to reopen its
// store.Cursor and compile queries against it without re-reading any data.
type TableMeta struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Created int64     `json:"created_timestamp"`
	NRows   int64     `json:"nrows"`
	Headers []string  `json:"headers"`
}

// Database is the top-level handle: the table registry plus the single
// writer lock every Import call takes, mirroring Database's embedded
// sync.Mutex.
type Database struct {
	sync.Mutex
	Config *Config
	tables map[string]*TableMeta
	log    *zap.SugaredLogger
}

// NewDatabase binds a Database to wdir, creating it (and an initial config
// file) if absent, or reloading table manifests if it already exists. An
// empty wdir falls back to a fresh temp directory, exactly as
// database.NewDatabase does.
func NewDatabase(wdir string, overrides *Config, log *zap.SugaredLogger) (*Database, error) {
	cfg := &Config{WorkingDirectory: wdir, CreatedTimestamp: time.Now().UTC().Unix()}
	if wdir == "" {
		tdir, err := os.MkdirTemp("", "testdb_tmp")
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "creating a temporary working directory")
		}
		cfg.WorkingDirectory = filepath.Join(tdir, "testdb_database")
	}

	abspath, err := filepath.Abs(cfg.WorkingDirectory)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "resolving working directory")
	}
	cfg.WorkingDirectory = abspath
	cfgPath := filepath.Join(abspath, configFileName)
	if stat, err := os.Stat(abspath); err == nil && stat.IsDir() {
		if f, err := os.Open(cfgPath); err == nil {
			defer f.Close()
			if err := json.NewDecoder(f).Decode(cfg); err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding existing config at %s", cfgPath)
			}
			cfg.WorkingDirectory = abspath
		}
	}

	if overrides != nil && overrides.MaxRowsPerStripe != 0 {
		cfg.MaxRowsPerStripe = overrides.MaxRowsPerStripe
	}
	if cfg.MaxRowsPerStripe == 0 {
		cfg.MaxRowsPerStripe = store.DefaultMaxRowsPerStripe
	}
	if cfg.DatabaseID == uuid.Nil {
		cfg.DatabaseID = uuid.New()
	}

	if err := os.MkdirAll(cfg.WorkingDirectory, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "creating working directory")
	}
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "encoding config")
	}
	if err := os.WriteFile(cfgPath, buf.Bytes(), 0o644); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "writing config to %s", cfgPath)
	}

	db := &Database{Config: cfg, tables: make(map[string]*TableMeta), log: log}
	if err := os.MkdirAll(db.manifestDir(), 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "creating manifests directory")
	}
	if err := os.MkdirAll(db.dataDir(), 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "creating data directory")
	}

	entries, err := os.ReadDir(db.manifestDir())
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "listing manifests")
	}
	for _, e := range entries {
		f, err := os.Open(filepath.Join(db.manifestDir(), e.Name()))
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "opening manifest %s", e.Name())
		}
		var tm TableMeta
		decErr := json.NewDecoder(f).Decode(&tm)
		f.Close()
		if decErr != nil {
			return nil, dberr.Wrap(dberr.KindStorage, decErr, "decoding manifest %s", e.Name())
		}
		db.tables[tm.Name] = &tm
	}
	return db, nil
}

func (db *Database) manifestDir() string { return filepath.Join(db.Config.WorkingDirectory, "manifests") }
func (db *Database) dataDir() string     { return filepath.Join(db.Config.WorkingDirectory, "data") }

func (db *Database) tableDir(name string) string {
	return filepath.Join(db.dataDir(), name)
}

func (db *Database) manifestPath(name string) string {
	return filepath.Join(db.manifestDir(), name+".json")
}

// Table returns a table's manifest, or a Storage error if it isn't
// registered: a missing-table lookup during query is a storage fault, not
// an invalid request, since the SQL parsed fine and the table just isn't
// there.
func (db *Database) Table(name string) (*TableMeta, error) {
	db.Lock()
	defer db.Unlock()
	tm, ok := db.tables[name]
	if !ok {
		return nil, dberr.Storagef("table %q not found", name)
	}
	return tm, nil
}

// Tables lists every registered table's manifest.
func (db *Database) Tables() []*TableMeta {
	db.Lock()
	defer db.Unlock()
	out := make([]*TableMeta, 0, len(db.tables))
	for _, tm := range db.tables {
		out = append(out, tm)
	}
	return out
}

func (db *Database) register(tm *TableMeta) error {
	db.Lock()
	db.tables[tm.Name] = tm
	db.Unlock()

	f, err := os.Create(db.manifestPath(tm.Name))
	if err != nil {
		return dberr.Wrap(dberr.KindStorage, err, "creating manifest for table %q", tm.Name)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tm); err != nil {
		return dberr.Wrap(dberr.KindStorage, err, "encoding manifest for table %q", tm.Name)
	}
	return nil
}

// LoadSamples walks sampleDir (a flat directory of CSV files) and imports
// each as a table named after the file, mirroring
// Database.LoadSampleData.
func (db *Database) LoadSamples(sampleDir fs.FS) error {
	files, err := fs.Glob(sampleDir, "*")
	if err != nil {
		return dberr.Wrap(dberr.KindStorage, err, "listing sample data")
	}
	for _, name := range files {
		f, err := sampleDir.Open(name)
		if err != nil {
			return dberr.Wrap(dberr.KindStorage, err, "opening sample %s", name)
		}
		_, err = db.importReader(name, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading sample %s: %w", name, err)
		}
		if db.log != nil {
			db.log.Infow("loaded sample table", "table", name)
		}
	}
	return nil
}
