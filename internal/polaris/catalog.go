package polaris

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Document naming convention: query_<key>.graphql and mutation_<key>.graphql.
const (
	queryPrefix    = "query_"
	mutationPrefix = "mutation_"
	documentSuffix = ".graphql"
)

//go:embed queries/*.graphql
var bundledDocuments embed.FS

// CatalogEntry is a single GraphQL document known to the client.
type CatalogEntry struct {
	// Key is the short operation identifier, e.g. "sla_domains"
	Key string

	// Operation is the operation type (query or mutation)
	Operation ast.Operation

	// OperationName is the name declared in the document, sent as operationName
	OperationName string

	// Text is the literal document text
	Text string

	// Connections lists the top-level response fields that are edge/node
	// connections, in document order
	Connections []string
}

// Catalog maps operation keys to GraphQL documents. It is read-only once
// loaded and safe for concurrent use.
type Catalog struct {
	entries map[string]CatalogEntry
}

// DefaultCatalog loads the documents bundled with the package.
func DefaultCatalog() (*Catalog, error) {
	sub, err := fs.Sub(bundledDocuments, "queries")
	if err != nil {
		return nil, fmt.Errorf("failed to open bundled queries: %w", err)
	}
	return LoadCatalog(sub)
}

// LoadCatalog walks fsys and indexes every query_*.graphql and
// mutation_*.graphql document. Other files are ignored. Two documents that
// derive the same key, a document that cannot be parsed, or a document whose
// operation type disagrees with its file prefix produce a *CatalogError.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]CatalogEntry)}
	sources := make(map[string]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		key, op, ok := deriveKey(path.Base(p))
		if !ok {
			return nil
		}
		if prev, dup := sources[key]; dup {
			return &CatalogError{Key: key, Message: fmt.Sprintf("documents %s and %s derive the same key", prev, p)}
		}

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		entry, err := parseEntry(key, p, op, string(raw))
		if err != nil {
			return err
		}

		sources[key] = p
		c.entries[key] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// deriveKey strips the naming convention from a document base name.
func deriveKey(name string) (string, ast.Operation, bool) {
	if !strings.HasSuffix(name, documentSuffix) {
		return "", "", false
	}
	stem := strings.TrimSuffix(name, documentSuffix)

	switch {
	case strings.HasPrefix(stem, queryPrefix):
		key := strings.TrimPrefix(stem, queryPrefix)
		return key, ast.Query, key != ""
	case strings.HasPrefix(stem, mutationPrefix):
		key := strings.TrimPrefix(stem, mutationPrefix)
		return key, ast.Mutation, key != ""
	default:
		return "", "", false
	}
}

func parseEntry(key, source string, op ast.Operation, text string) (CatalogEntry, error) {
	doc, perr := parser.ParseQuery(&ast.Source{Name: source, Input: text})
	if perr != nil {
		return CatalogEntry{}, &CatalogError{Key: key, Message: fmt.Sprintf("cannot parse %s: %v", source, perr)}
	}
	if len(doc.Operations) == 0 {
		return CatalogEntry{}, &CatalogError{Key: key, Message: fmt.Sprintf("%s declares no operation", source)}
	}

	def := doc.Operations[0]
	if def.Operation != op {
		return CatalogEntry{}, &CatalogError{
			Key:     key,
			Message: fmt.Sprintf("%s declares a %s but is named as a %s", source, def.Operation, op),
		}
	}

	return CatalogEntry{
		Key:           key,
		Operation:     def.Operation,
		OperationName: def.Name,
		Text:          text,
		Connections:   connectionFields(def.SelectionSet),
	}, nil
}

// connectionFields returns the response keys of the top-level fields whose
// selection is shaped { edges { node { ... } } }.
func connectionFields(set ast.SelectionSet) []string {
	var fields []string
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		edges := childField(field.SelectionSet, "edges")
		if edges == nil || childField(edges.SelectionSet, "node") == nil {
			continue
		}
		fields = append(fields, responseKey(field))
	}
	return fields
}

func childField(set ast.SelectionSet, name string) *ast.Field {
	for _, sel := range set {
		if f, ok := sel.(*ast.Field); ok && responseKey(f) == name {
			return f
		}
	}
	return nil
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Get returns the entry for key, or a *CatalogError if it is unknown.
func (c *Catalog) Get(key string) (CatalogEntry, error) {
	entry, ok := c.entries[key]
	if !ok {
		return CatalogEntry{}, &CatalogError{Key: key, Message: "unknown operation"}
	}
	return entry, nil
}

// Connections returns the connection fields recorded for key.
func (c *Catalog) Connections(key string) ([]string, error) {
	entry, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), entry.Connections...), nil
}

// Keys returns every operation key in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
