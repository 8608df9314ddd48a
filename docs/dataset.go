package docs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// referenceRoot is the first element of a dataset-form type reference,
// ["Peripherals", P, "objects", O].
const referenceRoot = "Peripherals"

// LoadDataset reads and decodes the documentation file at path. JSON and
// YAML files are both accepted.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %q: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes a documentation dataset. Peripherals, objects and
// methods keep the order they appear in the document.
func ParseDataset(data []byte) (*Dataset, error) {
	var raw rawDocumentation
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	ds := &Dataset{
		EngineVersion:  raw.EngineVersion,
		RevisionDate:   raw.RevisionDate,
		RevisionNumber: raw.RevisionNumber,
	}
	for _, pname := range raw.Peripherals.keys {
		rp := raw.Peripherals.values[pname]
		p := &Peripheral{
			Name:             pname,
			FullName:         rp.Name,
			ShortDescription: rp.ShortDescription,
			FullDescription:  rp.FullDescription,
		}
		for _, mname := range rp.Methods.keys {
			p.Methods = append(
				p.Methods,
				rp.Methods.values[mname].method(pname, "", mname),
			)
		}
		for _, oname := range rp.Objects.keys {
			ro := rp.Objects.values[oname]
			o := &Object{
				Name:             oname,
				ShortDescription: ro.ShortDescription,
				LongDescription:  ro.LongDescription,
			}
			for _, mname := range ro.Methods.keys {
				o.Methods = append(
					o.Methods,
					ro.Methods.values[mname].method(pname, oname, mname),
				)
			}
			p.Objects = append(p.Objects, o)
		}
		ds.Peripherals = append(ds.Peripherals, p)
	}
	return ds, nil
}

// orderedMap decodes a YAML/JSON mapping while remembering key order.
// A repeated key keeps its first position and takes the last value.
type orderedMap[T any] struct {
	keys   []string
	values map[string]T
}

func (m *orderedMap[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	m.keys = make([]string, 0, len(node.Content)/2)
	m.values = make(map[string]T, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var v T
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, seen := m.values[key]; !seen {
			m.keys = append(m.keys, key)
		}
		m.values[key] = v
	}
	return nil
}

type rawDocumentation struct {
	EngineVersion  []int                     `yaml:"engineVersion"`
	RevisionDate   string                    `yaml:"revisionDate"`
	RevisionNumber int                       `yaml:"revisionNumber"`
	Peripherals    orderedMap[rawPeripheral] `yaml:"Peripherals"`
}

type rawPeripheral struct {
	Name             string                `yaml:"name"`
	ShortDescription string                `yaml:"shortDescription"`
	FullDescription  string                `yaml:"fullDescription"`
	Methods          orderedMap[rawMethod] `yaml:"methods"`
	Objects          orderedMap[rawObject] `yaml:"objects"`
}

type rawObject struct {
	ShortDescription string                `yaml:"shortDescription"`
	LongDescription  string                `yaml:"longDescription"`
	Methods          orderedMap[rawMethod] `yaml:"methods"`
}

type rawMethod struct {
	ShortDescription string        `yaml:"shortDescription"`
	LongDescription  string        `yaml:"longDescription"`
	Notes            []string      `yaml:"notes"`
	Extra            string        `yaml:"extra"`
	Self             bool          `yaml:"self"`
	Arguments        []rawArgument `yaml:"arguments"`
	Returns          []rawReturn   `yaml:"returns"`
	Usages           *[]rawUsage   `yaml:"usages"`
}

type rawUsage struct {
	Name             string        `yaml:"name"`
	ShortDescription string        `yaml:"shortDescription"`
	LongDescription  string        `yaml:"longDescription"`
	Notes            []string      `yaml:"notes"`
	Extra            string        `yaml:"extra"`
	Arguments        []rawArgument `yaml:"arguments"`
	Returns          []rawReturn   `yaml:"returns"`
}

type rawArgument struct {
	Name        *string   `yaml:"name"`
	Type        yaml.Node `yaml:"type"`
	Description string    `yaml:"description"`
	Default     string    `yaml:"default"`
}

type rawReturn struct {
	Name        string    `yaml:"name"`
	Type        yaml.Node `yaml:"type"`
	Description string    `yaml:"description"`
}

func (r rawMethod) method(peripheral, object, name string) *Method {
	m := &Method{
		Peripheral:       peripheral,
		Object:           object,
		Name:             name,
		ColonCall:        r.Self,
		ShortDescription: r.ShortDescription,
		LongDescription:  r.LongDescription,
		Notes:            r.Notes,
		Extra:            r.Extra,
	}
	if r.Usages != nil {
		usages := make([]Usage, 0, len(*r.Usages))
		for _, u := range *r.Usages {
			usages = append(
				usages, Usage{
					Name:             u.Name,
					ShortDescription: u.ShortDescription,
					LongDescription:  u.LongDescription,
					Notes:            u.Notes,
					Extra:            u.Extra,
					Arguments:        convertArguments(u.Arguments),
					Returns:          convertReturns(u.Returns),
				},
			)
		}
		m.Signature = MultiUsage{Usages: usages}
		return m
	}
	m.Signature = SingleUsage{
		Arguments: convertArguments(r.Arguments),
		Returns:   convertReturns(r.Returns),
	}
	return m
}

func convertArguments(raw []rawArgument) []Argument {
	if len(raw) == 0 {
		return nil
	}
	args := make([]Argument, 0, len(raw))
	for i := range raw {
		a := &raw[i]
		t := convertType(&a.Type)
		if a.Name == nil {
			args = append(
				args,
				LiteralArgument{Value: a.Default, Type: t, Description: a.Description},
			)
			continue
		}
		args = append(
			args, NamedArgument{
				Name:        *a.Name,
				Type:        t,
				Default:     a.Default,
				Description: a.Description,
			},
		)
	}
	return args
}

func convertReturns(raw []rawReturn) []ReturnValue {
	if len(raw) == 0 {
		return nil
	}
	rets := make([]ReturnValue, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		rets = append(
			rets, ReturnValue{
				Name:        r.Name,
				Type:        convertType(&r.Type),
				Description: r.Description,
			},
		)
	}
	return rets
}

// convertType accepts a scalar type name, a single object reference, or a
// list of type names and object references.
func convertType(n *yaml.Node) LuaType {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" || n.ShortTag() == "!!null" {
			return nil
		}
		return LuaType{{Primitive: PrimitiveType(n.Value)}}
	case yaml.SequenceNode:
		// a flat ["Peripherals", P, "objects", O] is a single reference
		if ref, ok := convertReference(n); ok && len(n.Content) == 4 {
			return LuaType{ref}
		}
		var t LuaType
		for _, c := range n.Content {
			switch c.Kind {
			case yaml.ScalarNode:
				if c.Value != "" {
					t = append(t, TypeRef{Primitive: PrimitiveType(c.Value)})
				}
			case yaml.SequenceNode:
				if ref, ok := convertReference(c); ok {
					t = append(t, ref)
				}
			}
		}
		return t
	default:
		return nil
	}
}

func convertReference(n *yaml.Node) (TypeRef, bool) {
	parts := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode {
			return TypeRef{}, false
		}
		parts = append(parts, c.Value)
	}
	switch {
	case len(parts) == 4 && parts[0] == referenceRoot:
		return TypeRef{Peripheral: parts[1], Object: parts[3]}, true
	case len(parts) == 2:
		return TypeRef{Peripheral: parts[0], Object: parts[1]}, true
	default:
		return TypeRef{}, false
	}
}
