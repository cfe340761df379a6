package deck

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed defaults/*.csv
var defaultDecks embed.FS

const tableExt = ".csv"

// Catalog is a source of named deck tables.
// ReadTable returns an error matching ErrNotFound for unknown ids.
type Catalog interface {
	Enumerate() ([]string, error)
	ReadTable(id string) ([]byte, error)
}

// FSCatalog serves every top-level *.csv file of a filesystem as a deck,
// named by its file stem.
type FSCatalog struct {
	fsys fs.FS
}

// NewFSCatalog creates a catalog over fsys.
func NewFSCatalog(fsys fs.FS) *FSCatalog {
	return &FSCatalog{fsys: fsys}
}

// Builtin returns the catalog of decks bundled into the binary.
func Builtin() *FSCatalog {
	sub, err := fs.Sub(defaultDecks, "defaults")
	if err != nil {
		panic(fmt.Sprintf("deck: bundled decks unavailable: %v", err))
	}
	return NewFSCatalog(sub)
}

// Enumerate lists the deck ids in ascending order.
func (c *FSCatalog) Enumerate() ([]string, error) {
	matches, err := fs.Glob(c.fsys, "*"+tableExt)
	if err != nil {
		return nil, fmt.Errorf("listing decks: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(path.Base(m), tableExt))
	}
	slices.Sort(ids)
	return ids, nil
}

// ReadTable returns the raw content of the deck named id.
func (c *FSCatalog) ReadTable(id string) ([]byte, error) {
	name := id + tableExt
	if id == "" || strings.Contains(id, "/") || !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	content, err := fs.ReadFile(c.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading deck %s: %w", id, err)
	}
	return content, nil
}

type chain []Catalog

// Chain merges catalogs. Enumerate returns the sorted union of ids, and
// ReadTable serves an id from the first catalog that has it.
func Chain(catalogs ...Catalog) Catalog {
	return chain(catalogs)
}

func (c chain) Enumerate() ([]string, error) {
	var ids []string
	for _, cat := range c {
		more, err := cat.Enumerate()
		if err != nil {
			return nil, err
		}
		ids = append(ids, more...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (c chain) ReadTable(id string) ([]byte, error) {
	for _, cat := range c {
		content, err := cat.ReadTable(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return content, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
