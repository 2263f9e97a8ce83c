package vm

import (
	"unsafe"

	"github.com/dlclark/regexp2"
)

// RegExpObject is the RegExp exotic object of §4.3. Matching is delegated
// to regexp2, which (unlike the standard library's RE2 engine) supports
// the backreferences and lookaround ECMAScript patterns rely on.
type RegExpObject struct {
	Object
	Source     string
	Flags      string
	re         *regexp2.Regexp
	LastIndex  int
}

func regexp2Options(flags string) regexp2.RegexOptions {
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		}
	}
	return opts
}

func NewRegExp(vm *VM, proto Value, source, flags string) (Value, error) {
	re, err := regexp2.Compile(source, regexp2Options(flags))
	if err != nil {
		return Undefined, vm.newSyntaxError("Invalid regular expression: " + err.Error())
	}
	obj := &RegExpObject{Object: newObjectBase(proto, "RegExp"), Source: source, Flags: flags, re: re}
	obj.SetOwn("lastIndex", Number(0))
	return Value{typ: TypeRegExp, obj: unsafe.Pointer(obj)}, nil
}

func (v Value) AsRegExp() *RegExpObject { return (*RegExpObject)(v.obj) }
func (r *RegExpObject) value() Value    { return Value{typ: TypeRegExp, obj: unsafe.Pointer(r)} }

func (r *RegExpObject) Global() bool     { return containsByte(r.Flags, 'g') }
func (r *RegExpObject) Sticky() bool     { return containsByte(r.Flags, 'y') }
func (r *RegExpObject) IgnoreCase() bool { return containsByte(r.Flags, 'i') }
func (r *RegExpObject) Multiline() bool  { return containsByte(r.Flags, 'm') }
func (r *RegExpObject) Unicode() bool    { return containsByte(r.Flags, 'u') }
func (r *RegExpObject) DotAll() bool     { return containsByte(r.Flags, 's') }

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

// MatchResult mirrors the data Exec/Match need from a single match: the
// matched substring plus every capture group (empty string + false for an
// unmatched optional group), and named groups by name.
type MatchResult struct {
	Index  int
	Groups []MatchGroup
	Named  map[string]MatchGroup
}

type MatchGroup struct {
	Text    string
	Matched bool
}

// Exec runs one match starting at startAt (code-unit index), implementing
// the core of RegExp.prototype.exec: lastIndex bookkeeping is the caller's
// responsibility (it depends on global/sticky flags, which live on the
// builtin method, out of this core's scope).
func (r *RegExpObject) Exec(input string, startAt int) (*MatchResult, error) {
	m, err := r.re.FindStringMatchStartingAt(input, startAt)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	groups := m.Groups()
	res := &MatchResult{Index: m.Index, Named: make(map[string]MatchGroup)}
	for _, g := range groups {
		mg := MatchGroup{}
		if len(g.Captures) > 0 {
			mg.Text = g.String()
			mg.Matched = true
		}
		res.Groups = append(res.Groups, mg)
		// regexp2 names unnamed groups by their number; keep real names only.
		numbered := true
		for i := 0; i < len(g.Name); i++ {
			if g.Name[i] < '0' || g.Name[i] > '9' {
				numbered = false
				break
			}
		}
		if g.Name != "" && !numbered {
			res.Named[g.Name] = mg
		}
	}
	return res, nil
}

func (r *RegExpObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, r.value(), key, r.value())
}
func (r *RegExpObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, r.value(), key, value, receiver)
}
func (r *RegExpObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(r.value(), key) }
func (r *RegExpObject) DebugTag() string {
	return "/" + r.Source + "/" + r.Flags
}
