package migration

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/loykin/migscript/internal/constants"
	"gopkg.in/yaml.v3"
)

// migrationFileRegex matches files like 001_init.yaml, 20240101120000_add_users.yml, etc.
var migrationFileRegex = regexp.MustCompile(`^(\d[^.]*)\.(ya?ml)$`)

// Migration is one versioned migration file.
type Migration struct {
	ID          string
	Path        string
	Description string
	Automatic   bool
	Up          []Operation
	Down        []Operation
}

type migrationDoc struct {
	Description string                   `yaml:"description"`
	Automatic   bool                     `yaml:"automatic"`
	Up          []map[string]interface{} `yaml:"up"`
	Down        []map[string]interface{} `yaml:"down"`
}

type seedDoc struct {
	Seed []map[string]interface{} `yaml:"seed"`
}

// LoadDir reads every migration file in dir, sorted by id ascending.
func LoadDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := map[string]string{}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		m := migrationFileRegex.FindStringSubmatch(name)
		if len(m) == 0 {
			continue
		}
		id := m[1]
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate migration id %s (%s, %s)", id, prev, name)
		}
		seen[id] = name
		mig, err := loadMigrationFile(id, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		out = append(out, mig)
	}
	sortMigrations(out)
	return out, nil
}

// LoadSeed reads the optional seed file in dir. A missing file yields no operations.
func LoadSeed(dir string) ([]Operation, error) {
	path := filepath.Clean(filepath.Join(dir, constants.SeedFileName))
	// #nosec G304 -- fixed file name inside the configured migration directory
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var doc seedDoc
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to load %s: %w", constants.SeedFileName, err)
	}
	ops, err := decodeOperations(doc.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", constants.SeedFileName, err)
	}
	return ops, nil
}

func loadMigrationFile(id, path string) (Migration, error) {
	clean := filepath.Clean(path)
	// #nosec G304 -- path comes from controlled directory listing of migration files
	f, err := os.Open(clean)
	if err != nil {
		return Migration{}, err
	}
	defer func() { _ = f.Close() }()
	mig, err := decodeMigration(id, f)
	if err != nil {
		return Migration{}, err
	}
	mig.Path = clean
	return mig, nil
}

func decodeMigration(id string, r io.Reader) (Migration, error) {
	var doc migrationDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Migration{}, err
	}
	up, err := decodeOperations(doc.Up)
	if err != nil {
		return Migration{}, fmt.Errorf("up: %w", err)
	}
	down, err := decodeOperations(doc.Down)
	if err != nil {
		return Migration{}, fmt.Errorf("down: %w", err)
	}
	return Migration{
		ID:          id,
		Description: doc.Description,
		Automatic:   doc.Automatic || IsAutomaticName(id),
		Up:          up,
		Down:        down,
	}, nil
}

func sortMigrations(ms []Migration) {
	sort.Slice(ms, func(i, j int) bool { return CompareIDs(ms[i].ID, ms[j].ID) < 0 })
}
