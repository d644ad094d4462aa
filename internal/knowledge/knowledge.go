// Package knowledge loads the identifiers of the knowledge indexes that
// knowledge_search may query.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Index is one configured knowledge index.
type Index struct {
	ID   string `koanf:"id" json:"id"`
	Name string `koanf:"name" json:"name,omitempty"`
}

// Loader returns the configured knowledge indexes.
type Loader interface {
	Load(ctx context.Context) ([]Index, error)
}

// FileLoader reads indexes from a YAML file of the form:
//
//	indexes:
//	  - id: kb-handbook
//	    name: Employee handbook
type FileLoader struct {
	Path string
}

// NewFileLoader creates a loader for the given file.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

func (l *FileLoader) Load(ctx context.Context) ([]Index, error) {
	if strings.TrimSpace(l.Path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge index file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse knowledge index file: %w", err)
	}

	var doc struct {
		Indexes []Index `koanf:"indexes"`
	}
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge indexes: %w", err)
	}
	return doc.Indexes, nil
}

// StaticLoader returns a fixed set of indexes, or a fixed error.
type StaticLoader struct {
	Indexes []Index
	Err     error
}

func (l StaticLoader) Load(ctx context.Context) ([]Index, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Indexes, nil
}

// IDs returns the non-empty, de-duplicated ids in order.
func IDs(indexes []Index) []string {
	seen := make(map[string]struct{}, len(indexes))
	ids := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		id := strings.TrimSpace(idx.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
