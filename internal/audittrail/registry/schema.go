// Package registry describes which record types are audited and where the
// owning entities, identities and chains live.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultPrimaryKey     = "_id"
	DefaultIdentityColumn = "identity"
	DefaultIdentityModel  = "Identity"
	DefaultIdentityTable  = "identities"
	DefaultChainModel     = "Chain"
	DefaultChainTable     = "chains"
)

var (
	ErrEmptySchema   = errors.New("registry declares no tracked models")
	ErrMissingTable  = errors.New("table is required")
	ErrUnknownOwner  = errors.New("factomized model is not a declared owner")
	ErrDuplicateName = errors.New("model name declared twice")
)

// Entity addresses one model in the relational store.
type Entity struct {
	Table      string `koanf:"table"`
	PrimaryKey string `koanf:"primary_key"`
}

// Tracked is a record type whose mutations are appended to an audit chain.
type Tracked struct {
	Entity     `koanf:",squash"`
	Factomized string `koanf:"factomized"`
	ForeignKey string `koanf:"foreign_key"`
}

// Owner is an entity holding the identity reference.
type Owner struct {
	Entity         `koanf:",squash"`
	IdentityColumn string `koanf:"identity_column"`
}

// Named is an entity whose model name is configurable.
type Named struct {
	Entity `koanf:",squash"`
	Name   string `koanf:"name"`
}

// Schema is the static model configuration. It is read once at startup and
// never mutated afterwards.
type Schema struct {
	Tracked  map[string]Tracked `koanf:"tracked"`
	Owners   map[string]Owner   `koanf:"owners"`
	Identity Named              `koanf:"identity"`
	Chain    Named              `koanf:"chain"`
}

// LoadSchema reads a YAML registry file.
func LoadSchema(path string) (Schema, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Schema{}, fmt.Errorf("failed to load registry file %s: %w", path, err)
	}
	var schema Schema
	if err := k.Unmarshal("", &schema); err != nil {
		return Schema{}, fmt.Errorf("failed to decode registry file %s: %w", path, err)
	}
	schema.ApplyDefaults()
	if errs := schema.Validate(); len(errs) > 0 {
		return Schema{}, errors.Join(errs...)
	}
	return schema, nil
}

// ApplyDefaults fills primary keys, the identity column and the identity and
// chain model names where the file leaves them out.
func (s *Schema) ApplyDefaults() {
	for name, t := range s.Tracked {
		if t.PrimaryKey == "" {
			t.PrimaryKey = DefaultPrimaryKey
		}
		s.Tracked[name] = t
	}
	for name, o := range s.Owners {
		if o.PrimaryKey == "" {
			o.PrimaryKey = DefaultPrimaryKey
		}
		if o.IdentityColumn == "" {
			o.IdentityColumn = DefaultIdentityColumn
		}
		s.Owners[name] = o
	}
	s.Identity = withDefaults(s.Identity, DefaultIdentityModel, DefaultIdentityTable)
	s.Chain = withDefaults(s.Chain, DefaultChainModel, DefaultChainTable)
}

func withDefaults(n Named, name, table string) Named {
	if n.Name == "" {
		n.Name = name
	}
	if n.Table == "" {
		n.Table = table
	}
	if n.PrimaryKey == "" {
		n.PrimaryKey = DefaultPrimaryKey
	}
	return n
}

// Validate returns every problem found, in model name order.
func (s Schema) Validate() []error {
	var errs []error
	if len(s.Tracked) == 0 {
		errs = append(errs, ErrEmptySchema)
	}
	for _, name := range sortedKeys(s.Tracked) {
		t := s.Tracked[name]
		if t.Table == "" {
			errs = append(errs, fmt.Errorf("tracked model %s: %w", name, ErrMissingTable))
		}
		if _, ok := s.Owners[t.Factomized]; !ok {
			errs = append(errs, fmt.Errorf("tracked model %s: %q: %w", name, t.Factomized, ErrUnknownOwner))
		}
		// A model may be both tracked and an owner, but only over one table.
		if o, ok := s.Owners[name]; ok && o.Entity != t.Entity {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrDuplicateName))
		}
	}
	for _, name := range sortedKeys(s.Owners) {
		if s.Owners[name].Table == "" {
			errs = append(errs, fmt.Errorf("owner model %s: %w", name, ErrMissingTable))
		}
	}
	for _, reserved := range []string{s.Identity.Name, s.Chain.Name} {
		_, tracked := s.Tracked[reserved]
		_, owner := s.Owners[reserved]
		if tracked || owner {
			errs = append(errs, fmt.Errorf("%s: %w", reserved, ErrDuplicateName))
		}
	}
	return errs
}

// Entity returns the table and primary key of any model the schema knows.
func (s Schema) Entity(model string) (Entity, bool) {
	if t, ok := s.Tracked[model]; ok {
		return t.Entity, true
	}
	if o, ok := s.Owners[model]; ok {
		return o.Entity, true
	}
	switch model {
	case s.Identity.Name:
		return s.Identity.Entity, true
	case s.Chain.Name:
		return s.Chain.Entity, true
	}
	return Entity{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
