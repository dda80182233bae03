package mapping

import (
	"fmt"
	"strings"

	"collection-engine/core/collection"
	"collection-engine/core/valuetype"
)

// RoleSpec is one parsed role declaration.
type RoleSpec struct {
	Role           collection.Role
	Classification collection.Classification
	ElementType    string
	IndexType      string
	ExtraLazy      bool
	OneToMany      bool
	OrphanDelete   bool
}

// ParseRoles parses the Roles declaration string. Blank entries are ignored.
func ParseRoles(declaration string) ([]RoleSpec, error) {
	var specs []RoleSpec
	for _, entry := range strings.Split(declaration, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		spec, err := parseRole(entry)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseRole(entry string) (RoleSpec, error) {
	name, rest, ok := strings.Cut(entry, "=")
	if !ok {
		return RoleSpec{}, fmt.Errorf("role %q: missing classification", entry)
	}
	role, err := ParseRole(name)
	if err != nil {
		return RoleSpec{}, err
	}

	parts := strings.Split(rest, ",")
	kind, err := collection.ParseClassification(parts[0])
	if err != nil {
		return RoleSpec{}, fmt.Errorf("role %s: %w", role, err)
	}

	spec := RoleSpec{Role: role, Classification: kind}
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "element":
			spec.ElementType = value
		case "index":
			spec.IndexType = value
		case "extra_lazy":
			spec.ExtraLazy = true
		case "one_to_many":
			spec.OneToMany = true
		case "orphan_delete":
			spec.OrphanDelete = true
		case "":
		default:
			return RoleSpec{}, fmt.Errorf("role %s: unknown option %q", role, key)
		}
	}
	return spec, nil
}

// ParseRole parses a qualified role name such as "Order.lines".
func ParseRole(name string) (collection.Role, error) {
	owner, property, ok := strings.Cut(strings.TrimSpace(name), ".")
	if !ok || owner == "" || property == "" {
		return collection.Role{}, fmt.Errorf("invalid role name %q: expected <Owner>.<property>", name)
	}
	return collection.Role{Owner: owner, Property: property}, nil
}

// Descriptor resolves the value types of s into a collection descriptor.
// Sorted sets take the natural order of their element type.
func (s RoleSpec) Descriptor() (*collection.Descriptor, error) {
	elements, order, err := valuetype.Lookup(s.ElementType)
	if err != nil {
		return nil, fmt.Errorf("role %s element type: %w", s.Role, err)
	}
	d := &collection.Descriptor{
		CollectionRole: s.Role,
		Kind:           s.Classification,
		Elements:       elements,
		OneToMany:      s.OneToMany,
		ExtraLazy:      s.ExtraLazy,
		OrphanDelete:   s.OrphanDelete,
	}
	if s.IndexType != "" {
		index, _, err := valuetype.Lookup(s.IndexType)
		if err != nil {
			return nil, fmt.Errorf("role %s index type: %w", s.Role, err)
		}
		d.Index = index
	}
	if s.Classification == collection.SortedSet {
		d.Order = order
	}
	return d, nil
}

// BuildRegistry registers every declared role. Config.ExtraLazy turns the
// queue on for all of them.
func BuildRegistry(cfg Config) (*collection.Registry, error) {
	specs, err := ParseRoles(cfg.Roles)
	if err != nil {
		return nil, err
	}
	reg := collection.NewRegistry()
	for _, spec := range specs {
		if cfg.ExtraLazy {
			spec.ExtraLazy = true
		}
		d, err := spec.Descriptor()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
