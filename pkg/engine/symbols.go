package engine

// SymbolKind classifies a registered name. A name's kind is fixed for its
// lifetime: a function can never become a variable and vice versa.
type SymbolKind string

const (
	// SymbolFunction is a callable built-in function.
	SymbolFunction SymbolKind = "function"

	// SymbolInputVariable is a taxpayer-supplied value ($name).
	SymbolInputVariable SymbolKind = "input variable"

	// SymbolConstantVariable is a law-defined value ($$name).
	SymbolConstantVariable SymbolKind = "constant"

	// SymbolCalculatedVariable is a value produced during flow execution.
	SymbolCalculatedVariable SymbolKind = "calculated variable"
)

// IsVariable reports whether the kind is one of the three variable domains.
func (k SymbolKind) IsVariable() bool {
	return k == SymbolInputVariable || k == SymbolConstantVariable || k == SymbolCalculatedVariable
}

// SymbolOrigin records whether a symbol is part of the engine's built-in
// vocabulary or was registered for the current evaluation.
type SymbolOrigin string

const (
	// OriginBuiltin marks symbols that live for the engine's lifetime.
	OriginBuiltin SymbolOrigin = "builtin"

	// OriginContext marks symbols registered per evaluation and dropped by
	// ClearDynamic.
	OriginContext SymbolOrigin = "context"
)

// Symbol is one entry in the registry.
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Origin SymbolOrigin

	// TypeHint optionally records the declared value type of a variable.
	// Empty when unknown.
	TypeHint ValueType
}

// SymbolRegistry tracks known identifiers across the function and variable
// domains. Built-in entries are immutable for the registry's lifetime;
// context entries are rebuilt for every evaluation.
//
// Shadowing rules: built-in functions are never shadowable. Built-in
// constants and variables may be shadowed by a variable context entry.
// Registering a name across the function/variable divide is a conflict;
// the three variable domains may share a name, since resolution keeps
// them apart.
type SymbolRegistry struct {
	builtins map[string]*Symbol
	dynamic  map[string]*Symbol
}

// NewSymbolRegistry creates an empty registry.
func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{
		builtins: make(map[string]*Symbol),
		dynamic:  make(map[string]*Symbol),
	}
}

// Add registers a symbol. It fails with a *SymbolConflictError when the
// name crosses the function/variable divide, or when the registration
// would redefine a built-in function.
func (r *SymbolRegistry) Add(sym *Symbol) error {
	existing, ok := r.Get(sym.Name)
	if ok {
		if existing.Kind.IsVariable() != sym.Kind.IsVariable() {
			return &SymbolConflictError{
				Name:         sym.Name,
				ExistingKind: existing.Kind,
				NewKind:      sym.Kind,
			}
		}
		if existing.Origin == OriginBuiltin && existing.Kind == SymbolFunction {
			return &SymbolConflictError{
				Name:         sym.Name,
				ExistingKind: existing.Kind,
				NewKind:      sym.Kind,
			}
		}
	}

	switch sym.Origin {
	case OriginBuiltin:
		r.builtins[sym.Name] = sym
	default:
		r.dynamic[sym.Name] = sym
	}
	return nil
}

// Get looks up a symbol, consulting context entries before built-ins so
// that same-kind shadowing takes effect.
func (r *SymbolRegistry) Get(name string) (*Symbol, bool) {
	if sym, ok := r.dynamic[name]; ok {
		return sym, true
	}
	sym, ok := r.builtins[name]
	return sym, ok
}

// ClearDynamic drops every context-origin entry, keeping built-ins.
// It is invoked at the start of every top-level evaluation so no dynamic
// state leaks between calls.
func (r *SymbolRegistry) ClearDynamic() {
	if len(r.dynamic) == 0 {
		return
	}
	r.dynamic = make(map[string]*Symbol)
}

// ValidateUsage checks that a known name is being used as the expected
// kind. Function/variable confusion yields a *WrongKindUsageError; unknown
// names pass, since resolvability is judged by the evaluator's domain
// lookup.
func (r *SymbolRegistry) ValidateUsage(name string, expected SymbolKind) error {
	sym, ok := r.Get(name)
	if !ok {
		return nil
	}
	if sym.Kind == expected {
		return nil
	}
	// Using one variable domain where another is expected surfaces as an
	// unresolved reference during evaluation; only function/variable
	// confusion is a usage error.
	if sym.Kind.IsVariable() && expected.IsVariable() {
		return nil
	}
	return &WrongKindUsageError{
		Name:     name,
		Expected: expected,
		Actual:   sym.Kind,
	}
}
