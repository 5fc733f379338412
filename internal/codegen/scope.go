package codegen

import "github.com/robert-at-pretension-io/veridec/internal/ast"

// scope records the names declared in one module or generate block.
// Lookups walk outward; declarations never leak to the parent.
type scope struct {
	parent   *scope
	names    map[string]string // name -> "wire" | "reg"
	assigned map[string]bool   // targets of every assignment under this scope
}

// newScope opens a scope under parent that already knows the ports and
// nets explicitly declared in decls, wherever they appear in the list,
// and every name assigned anywhere below decls.
func newScope(parent *scope, decls []ast.Declaration) *scope {
	s := &scope{
		parent:   parent,
		names:    make(map[string]string),
		assigned: make(map[string]bool),
	}
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.Port:
			kind := "wire"
			if d.IsReg {
				kind = "reg"
			}
			s.declare(d.Name, kind)
		case *ast.Net:
			s.declare(d.Name, d.Kind.String())
		}
		ast.Inspect(d, func(n ast.Node) bool {
			if a, ok := n.(*ast.Assignment); ok {
				s.assigned[a.Target] = true
			}
			return true
		})
	}
	return s
}

func (s *scope) declare(name, kind string) {
	s.names[name] = kind
}

func (s *scope) lookup(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.names[name]; ok {
			return true
		}
	}
	return false
}

// driven reports whether name is assigned anywhere in s or an enclosing
// scope. An implicit declaration of such a name must be a reg even when
// the block that introduces it only reads it.
func (s *scope) driven(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.assigned[name] {
			return true
		}
	}
	return false
}
