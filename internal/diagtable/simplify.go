package diagtable

import "slices"

// Simplify returns a copy of the table in which every file with a plain
// varlist has its most common kind and reduction promoted to file level, and
// its variables grouped by module when they come from more than one module.
// Values equal to the promoted ones are removed from the variables.
func (t *Table) Simplify() *Table {
	out := t.Clone()
	for i, f := range out.DiagFiles {
		out.DiagFiles[i] = f.Simplify()
	}
	return out
}

// Simplify returns a simplified copy of the file. Files whose variables are
// already grouped by module, or that have no variables, are returned
// unchanged.
func (f *File) Simplify() *File {
	out := f.Clone()
	if out.UsesModules() || len(out.Varlist) == 0 {
		return out
	}

	kinds := make([]string, len(out.Varlist))
	reductions := make([]string, len(out.Varlist))
	modules := make([]string, len(out.Varlist))
	for i, v := range out.Varlist {
		kinds[i] = inherit(v.Kind, f.Kind)
		reductions[i] = inherit(v.Reduction, f.Reduction)
		modules[i] = inherit(v.Module, f.Module)
	}

	if kind, ok := majority(kinds); ok {
		out.Kind = kind
		for i, v := range out.Varlist {
			v.Kind = strip(kinds[i], kind)
		}
	}
	if reduction, ok := majority(reductions); ok {
		out.Reduction = reduction
		for i, v := range out.Varlist {
			v.Reduction = strip(reductions[i], reduction)
		}
	}

	distinct := firstSeen(modules)
	switch {
	case len(distinct) == 0 || slices.Contains(modules, ""):
		// Some variable has no module at all; grouping would invent one.
	case len(distinct) == 1:
		out.Module = distinct[0]
		for _, v := range out.Varlist {
			v.Module = ""
		}
	default:
		out.Module = ""
		for _, module := range distinct {
			g := &ModuleGroup{Module: module}
			for i, v := range out.Varlist {
				if modules[i] == module {
					v.Module = ""
					g.Varlist = append(g.Varlist, v)
				}
			}
			out.Modules = append(out.Modules, g)
		}
		out.Varlist = nil
	}
	return out
}

func inherit(own, inherited string) string {
	if own != "" {
		return own
	}
	return inherited
}

func strip(value, promoted string) string {
	if value == promoted {
		return ""
	}
	return value
}

// majority returns the most frequent value. Ties go to the value seen first.
// It fails when any value is empty.
func majority(values []string) (string, bool) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if v == "" {
			return "", false
		}
		counts[v]++
	}
	best := ""
	for _, v := range firstSeen(values) {
		if best == "" || counts[v] > counts[best] {
			best = v
		}
	}
	return best, best != ""
}

func firstSeen(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
