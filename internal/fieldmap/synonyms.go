package fieldmap

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/normalize"
)

// SynonymTable maps lowercase header aliases to field codes.
// No alias ever resolves to two codes.
type SynonymTable struct {
	entries map[string]FieldCode
}

// NewSynonymTable builds a table from alias -> code pairs, normalizing both sides.
// Later pairs overwrite earlier ones; use ParseSynonyms for validated input.
func NewSynonymTable(pairs map[string]FieldCode) *SynonymTable {
	t := &SynonymTable{entries: make(map[string]FieldCode, len(pairs))}
	for alias, code := range pairs {
		t.entries[normalize.Key(alias)] = FieldCode(normalize.Key(string(code)))
	}
	return t
}

// Lookup resolves a header or alias to its field code.
func (t *SynonymTable) Lookup(alias string) (FieldCode, bool) {
	if t == nil {
		return "", false
	}
	code, ok := t.entries[normalize.Key(alias)]
	return code, ok
}

// Len returns the number of aliases in the table.
func (t *SynonymTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Codes returns the distinct codes the table resolves to, sorted.
func (t *SynonymTable) Codes() []FieldCode {
	seen := make(map[FieldCode]struct{})
	for _, code := range t.entries {
		seen[code] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// SynonymsFor returns every alias that resolves to code, sorted.
func (t *SynonymTable) SynonymsFor(code FieldCode) []string {
	var out []string
	for alias, c := range t.entries {
		if c == code {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// Entries returns a copy of the alias -> code mapping.
func (t *SynonymTable) Entries() map[string]FieldCode {
	return maps.Clone(t.entries)
}

// Clone returns an independent copy of the table.
func (t *SynonymTable) Clone() *SynonymTable {
	return &SynonymTable{entries: maps.Clone(t.entries)}
}

// LoadSynonyms reads and validates the synonym configuration at path.
//
// The document maps each field code to a list of aliases. A missing file fails
// with CONFIG_NOT_FOUND, unparsable content with CONFIG_MALFORMED, and aliases
// claimed by more than one code with AMBIGUOUS_SYNONYM. Codes without aliases
// are kept and reported as warnings.
func LoadSynonyms(path string) (*SynonymTable, *Diagnostics, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from configuration
	if err != nil {
		// Unreadable is reported the same way as absent.
		return nil, &Diagnostics{}, domainerrors.ConfigNotFound(path, err)
	}
	return ParseSynonyms(data, path)
}

type synonymEntry struct {
	code    FieldCode
	aliases []string
}

// ParseSynonyms validates a synonym document. source names the document in errors.
func ParseSynonyms(data []byte, source string) (*SynonymTable, *Diagnostics, error) {
	diags := &Diagnostics{}

	entries, err := decodeSynonymDocument(data)
	if err != nil {
		return nil, diags, domainerrors.ConfigMalformed(source, err)
	}

	table := &SynonymTable{entries: make(map[string]FieldCode)}

	// Every code is its own synonym, claimed before any alias is considered.
	for _, e := range entries {
		table.entries[string(e.code)] = e.code
	}

	var conflicts []string
	for _, e := range entries {
		if len(e.aliases) == 0 {
			diags.warnf("code %q has no synonyms; only its own name will match", e.code)
			continue
		}
		for _, alias := range e.aliases {
			existing, claimed := table.entries[alias]
			switch {
			case !claimed:
				table.entries[alias] = e.code
			case existing != e.code:
				conflicts = append(conflicts, fmt.Sprintf("%q claimed by %s and %s", alias, existing, e.code))
			}
		}
	}

	if len(conflicts) > 0 {
		err := domainerrors.AmbiguousSynonym(conflicts)
		diags.fail(err)
		return nil, diags, err
	}

	return table, diags, nil
}

// decodeSynonymDocument walks the YAML node tree so that key order, duplicate
// codes and value shapes can be checked before anything is accepted.
func decodeSynonymDocument(data []byte) ([]synonymEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must map field codes to alias lists", root.Line)
	}

	var entries []synonymEntry
	firstLine := make(map[FieldCode]int)

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, fmt.Errorf("line %d: field code must be a non-empty string", keyNode.Line)
		}
		code := FieldCode(normalize.Key(keyNode.Value))
		// Keys are compared after normalization, so "Phone" and "phone" collide.
		if line, dup := firstLine[code]; dup {
			return nil, fmt.Errorf("duplicate code %q at lines %d and %d", code, line, keyNode.Line)
		}
		firstLine[code] = keyNode.Line

		aliases, err := decodeAliases(valueNode)
		if err != nil {
			return nil, fmt.Errorf("code %q: %w", code, err)
		}
		entries = append(entries, synonymEntry{code: code, aliases: aliases})
	}

	return entries, nil
}

func decodeAliases(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return nil, fmt.Errorf("line %d: aliases must be a list", node.Line)
	case yaml.SequenceNode:
		aliases := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				return nil, fmt.Errorf("line %d: alias must be a string", item.Line)
			}
			alias := normalize.Key(item.Value)
			if alias == "" {
				continue
			}
			aliases = append(aliases, alias)
		}
		return aliases, nil
	default:
		return nil, fmt.Errorf("line %d: aliases must be a list", node.Line)
	}
}
