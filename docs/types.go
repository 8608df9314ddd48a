package docs

// PrimitiveType is one of the standard Lua value types, or "any".
type PrimitiveType string

const (
	TypeNumber   PrimitiveType = "number"
	TypeString   PrimitiveType = "string"
	TypeBoolean  PrimitiveType = "boolean"
	TypeNil      PrimitiveType = "nil"
	TypeTable    PrimitiveType = "table"
	TypeUserdata PrimitiveType = "userdata"
	TypeFunction PrimitiveType = "function"
	TypeAny      PrimitiveType = "any"
)

// TypeRef is a single accepted type. It's either a primitive, or a
// reference to an object documented under a peripheral.
type TypeRef struct {
	Primitive  PrimitiveType `json:"primitive,omitempty"`
	Peripheral string        `json:"peripheral,omitempty"`
	Object     string        `json:"object,omitempty"`
}

// IsReference reports whether t points at a documented object.
func (t TypeRef) IsReference() bool {
	return t.Object != ""
}

// LuaType is the ordered list of types accepted or returned by a value.
type LuaType []TypeRef

// Argument is either a [LiteralArgument] or a [NamedArgument].
type Argument interface {
	argumentType() LuaType
}

// LiteralArgument is a fixed value substituted into example code, like
// `"fill"` or `0`.
type LiteralArgument struct {
	Value       string  `json:"value"`
	Type        LuaType `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (a LiteralArgument) argumentType() LuaType { return a.Type }

// NamedArgument is a regular parameter. A non-empty Default marks it optional.
type NamedArgument struct {
	Name        string  `json:"name"`
	Type        LuaType `json:"type,omitempty"`
	Default     string  `json:"default,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (a NamedArgument) argumentType() LuaType { return a.Type }

// Optional reports whether the argument may be omitted.
func (a NamedArgument) Optional() bool {
	return a.Default != ""
}

// ReturnValue describes one value returned by a method. Name may itself be
// a literal, such as `true` or `"ok"`.
type ReturnValue struct {
	Name        string  `json:"name"`
	Type        LuaType `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Usage is one of the alternative call signatures of a multi-usage method.
type Usage struct {
	Name             string        `json:"name"`
	ShortDescription string        `json:"short_description,omitempty"`
	LongDescription  string        `json:"long_description,omitempty"`
	Notes            []string      `json:"notes,omitempty"`
	Extra            string        `json:"extra,omitempty"`
	Arguments        []Argument    `json:"arguments,omitempty"`
	Returns          []ReturnValue `json:"returns,omitempty"`
}

// Signature is either a [SingleUsage] or a [MultiUsage].
type Signature interface {
	usageCount() int
}

// SingleUsage is the signature of a method with exactly one way to call it.
type SingleUsage struct {
	Arguments []Argument    `json:"arguments,omitempty"`
	Returns   []ReturnValue `json:"returns,omitempty"`
}

func (SingleUsage) usageCount() int { return 1 }

// MultiUsage holds the variants of a method, numbered from 1 in
// declaration order.
type MultiUsage struct {
	Usages []Usage `json:"usages"`
}

func (m MultiUsage) usageCount() int { return len(m.Usages) }

// Usage returns variant n (1-indexed), if it exists.
func (m MultiUsage) Usage(n int) (Usage, bool) {
	if n < 1 || n > len(m.Usages) {
		return Usage{}, false
	}
	return m.Usages[n-1], true
}

// Method is the documentation of a single callable method, either directly
// on a peripheral or on one of its objects.
type Method struct {
	Peripheral       string    `json:"peripheral"`
	Object           string    `json:"object,omitempty"`
	Name             string    `json:"name"`
	ColonCall        bool      `json:"colon_call"`
	ShortDescription string    `json:"short_description,omitempty"`
	LongDescription  string    `json:"long_description,omitempty"`
	Notes            []string  `json:"notes,omitempty"`
	Extra            string    `json:"extra,omitempty"`
	Signature        Signature `json:"signature"`
}

// Parent is the name the method is called on: the object if there is one,
// otherwise the peripheral.
func (m *Method) Parent() string {
	if m.Object != "" {
		return m.Object
	}
	return m.Peripheral
}

// Separator is ":" for colon-call methods, otherwise ".".
func (m *Method) Separator() string {
	if m.ColonCall {
		return ":"
	}
	return "."
}

// FormattedName is the canonical display name, `Peripheral/Object:method`
// or `Peripheral.method`.
func (m *Method) FormattedName() string {
	if m.Object != "" {
		return m.Peripheral + "/" + m.Object + m.Separator() + m.Name
	}
	return m.Peripheral + m.Separator() + m.Name
}

// UsageCount returns the number of call signatures of the method.
func (m *Method) UsageCount() int {
	if m.Signature == nil {
		return 0
	}
	return m.Signature.usageCount()
}

// Object is a named component nested in a peripheral.
type Object struct {
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description,omitempty"`
	LongDescription  string    `json:"long_description,omitempty"`
	Methods          []*Method `json:"methods,omitempty"`
}

// Peripheral is a top-level documented engine subsystem.
type Peripheral struct {
	Name             string    `json:"name"`
	FullName         string    `json:"full_name,omitempty"`
	ShortDescription string    `json:"short_description,omitempty"`
	FullDescription  string    `json:"full_description,omitempty"`
	Methods          []*Method `json:"methods,omitempty"`
	Objects          []*Object `json:"objects,omitempty"`
}

// Dataset is the whole documentation tree, in file order.
type Dataset struct {
	EngineVersion  []int         `json:"engine_version,omitempty"`
	RevisionDate   string        `json:"revision_date,omitempty"`
	RevisionNumber int           `json:"revision_number,omitempty"`
	Peripherals    []*Peripheral `json:"peripherals"`
}

// MethodCount returns the number of methods in the dataset.
func (d *Dataset) MethodCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, p := range d.Peripherals {
		n += len(p.Methods)
		for _, o := range p.Objects {
			n += len(o.Methods)
		}
	}
	return n
}
