package diagtable

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru"
)

// FileFilterFunc selects files. A nil filter selects every file.
type FileFilterFunc func(*File) bool

// VarFilterFunc selects variables. A nil filter selects every variable.
type VarFilterFunc func(VarRef) bool

// Compiled name patterns are shared between filters; the CLI compiles the same
// handful of patterns for every table it reads.
var globCache = mustCache(256)

func mustCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return c
}

func compileGlob(pattern string) (glob.Glob, error) {
	if g, ok := globCache.Get(pattern); ok {
		return g.(glob.Glob), nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	globCache.Add(pattern, g)
	return g, nil
}

// nameSet matches a name against a comma separated list of glob patterns.
// A name always matches itself, even when it holds glob syntax.
type nameSet struct {
	all      bool
	names    []string
	patterns []glob.Glob
}

func parseNames(spec, component string) (nameSet, error) {
	var s nameSet
	for name := range strings.SplitSeq(component, ",") {
		name = strings.TrimSpace(name)
		if name == "" || name == "*" {
			s.all = true
			continue
		}
		g, err := compileGlob(name)
		if err != nil {
			return nameSet{}, &FilterSpecError{Spec: spec, Reason: fmt.Sprintf("bad pattern %q: %v", name, err)}
		}
		s.names = append(s.names, name)
		s.patterns = append(s.patterns, g)
	}
	return s, nil
}

func (s nameSet) match(name string) bool {
	return s.all || slices.Contains(s.names, name) ||
		slices.ContainsFunc(s.patterns, func(g glob.Glob) bool { return g.Match(name) })
}

func splitNegation(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "~"); ok {
		return rest, true
	}
	return spec, false
}

// ParseFileFilter compiles file filter expressions of the form
// "[~]name[,name...]". Names are glob patterns and "*" or an empty list
// matches every file; "~" negates the clause. A file is selected when any
// expression selects it. Without expressions the filter is nil.
func ParseFileFilter(specs ...string) (FileFilterFunc, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	type clause struct {
		names  nameSet
		negate bool
	}
	clauses := make([]clause, 0, len(specs))
	for _, spec := range specs {
		body, negate := splitNegation(spec)
		names, err := parseNames(spec, body)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause{names: names, negate: negate})
	}
	return func(f *File) bool {
		return slices.ContainsFunc(clauses, func(c clause) bool {
			return c.names.match(f.FileName) != c.negate
		})
	}, nil
}

// ParseVarFilter compiles variable filter expressions of the form
// "[~][file[,file]:[module[,module]:]]var[,var]". Components are read from
// the right and missing or empty components match everything. The module is
// compared against the variable's effective module.
func ParseVarFilter(specs ...string) (VarFilterFunc, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	type clause struct {
		files, modules, vars nameSet
		negate               bool
	}
	clauses := make([]clause, 0, len(specs))
	for _, spec := range specs {
		body, negate := splitNegation(spec)
		parts := strings.Split(body, ":")
		if len(parts) > 3 {
			return nil, &FilterSpecError{Spec: spec, Reason: "expected at most three components file:module:var"}
		}
		components := [3]string{} // file, module, var
		components[2] = parts[len(parts)-1]
		if len(parts) >= 2 {
			components[0] = parts[0]
		}
		if len(parts) == 3 {
			components[1] = parts[1]
		}

		c := clause{negate: negate}
		var err error
		if c.files, err = parseNames(spec, components[0]); err != nil {
			return nil, err
		}
		if c.modules, err = parseNames(spec, components[1]); err != nil {
			return nil, err
		}
		if c.vars, err = parseNames(spec, components[2]); err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return func(r VarRef) bool {
		return slices.ContainsFunc(clauses, func(c clause) bool {
			ok := c.files.match(r.File.FileName) && c.modules.match(r.Module()) && c.vars.match(r.Var.VarName)
			return ok != c.negate
		})
	}, nil
}

// FilteredFiles returns the files selected by match.
func (t *Table) FilteredFiles(match FileFilterFunc) []*File {
	var out []*File
	for _, f := range t.DiagFiles {
		if match == nil || match(f) {
			out = append(out, f)
		}
	}
	return out
}

// FilteredVars returns the variables selected by match, in table order.
func (t *Table) FilteredVars(match VarFilterFunc) []VarRef {
	var out []VarRef
	for _, f := range t.DiagFiles {
		for r := range f.Variables() {
			if match == nil || match(r) {
				out = append(out, r)
			}
		}
	}
	return out
}

// FilterFiles returns a copy of the table holding only the selected files.
func (t *Table) FilterFiles(match FileFilterFunc) *Table {
	out := &Table{Title: t.Title, BaseDate: t.BaseDate}
	for _, f := range t.FilteredFiles(match) {
		out.DiagFiles = append(out.DiagFiles, f.Clone())
	}
	return out
}

// FilterVars returns a copy of the table holding only the selected
// variables. Module groups left without variables are dropped; files are kept
// and can be removed with Prune.
func (t *Table) FilterVars(match VarFilterFunc) *Table {
	out := t.Clone()
	if match == nil {
		return out
	}
	for _, f := range out.DiagFiles {
		f.Varlist = slices.DeleteFunc(f.Varlist, func(v *Variable) bool {
			return !match(VarRef{File: f, Var: v})
		})
		for _, g := range f.Modules {
			g.Varlist = slices.DeleteFunc(g.Varlist, func(v *Variable) bool {
				return !match(VarRef{File: f, Group: g, Var: v})
			})
		}
		f.Modules = slices.DeleteFunc(f.Modules, func(g *ModuleGroup) bool { return len(g.Varlist) == 0 })
	}
	return out
}

// Prune returns a copy of the table without the files that have no
// variables.
func (t *Table) Prune() *Table {
	return t.FilterFiles(func(f *File) bool { return f.NumVariables() > 0 })
}
