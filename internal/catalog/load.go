package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

//go:embed curriculum.schema.json
var curriculumSchemaJSON []byte

const curriculumSchemaURL = "schema://curriculum.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// fileEntry is the on-disk shape of a curriculum entry.
type fileEntry struct {
	ID         string `json:"id"`
	Belt       string `json:"belt"`
	Kind       Kind   `json:"kind"`
	Difficulty int    `json:"difficulty"`
	Term       string `json:"term"`
	Meaning    string `json:"meaning"`
}

type fileCatalog struct {
	Version string      `json:"version"`
	Entries []fileEntry `json:"entries"`
}

// LoadFile reads and validates a curriculum file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a curriculum document, validates it against the embedded
// schema and converts belt names to ranks.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	sch, err := curriculumSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc fileCatalog
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if !semver.IsValid(doc.Version) {
		return nil, fmt.Errorf("catalog version %q is not a semantic version", doc.Version)
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for _, fe := range doc.Entries {
		rank, err := ParseRank(fe.Belt)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", fe.ID, err)
		}
		entries = append(entries, Entry{
			ID:         fe.ID,
			GateLevel:  rank,
			Difficulty: fe.Difficulty,
			Kind:       fe.Kind,
			Term:       fe.Term,
			Meaning:    fe.Meaning,
		})
	}

	return New(semver.Canonical(doc.Version), entries)
}

// NewerThan reports whether this catalog's version is greater than other.
// An empty other is treated as older than any catalog.
func (c *Catalog) NewerThan(other string) bool {
	if other == "" {
		return true
	}
	return semver.Compare(c.version, other) > 0
}

func curriculumSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal(curriculumSchemaJSON, &def); err != nil {
			compileErr = fmt.Errorf("parse curriculum schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(curriculumSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(curriculumSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile curriculum schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

//go:embed curriculum.json
var defaultCurriculum []byte

// Default returns the built-in curriculum.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCurriculum))
}
