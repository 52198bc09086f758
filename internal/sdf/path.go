package sdf

import "strings"

// Path addresses a spec in a layer: "/" is the pseudo-root, "/a/b" a prim and
// "/a/b.points" a property of /a/b. Property names may contain namespace
// separators (":").
type Path string

// AbsoluteRootPath is the pseudo-root.
const AbsoluteRootPath Path = "/"

// EmptyPath is the invalid path.
const EmptyPath Path = ""

// PathFromElements builds a prim path from prim names. No names yields the pseudo-root.
func PathFromElements(names []string) Path {
	if len(names) == 0 {
		return AbsoluteRootPath
	}
	return Path("/" + strings.Join(names, "/"))
}

func (p Path) String() string { return string(p) }

// IsEmpty reports whether p is the invalid path.
func (p Path) IsEmpty() bool { return p == EmptyPath }

// IsAbsoluteRoot reports whether p is the pseudo-root.
func (p Path) IsAbsoluteRoot() bool { return p == AbsoluteRootPath }

// IsPropertyPath reports whether p names a property.
func (p Path) IsPropertyPath() bool {
	return strings.IndexByte(p.lastElement(), '.') >= 0
}

// IsPrimPath reports whether p names a prim (not the pseudo-root, not a property).
func (p Path) IsPrimPath() bool {
	return !p.IsEmpty() && !p.IsAbsoluteRoot() && !p.IsPropertyPath()
}

func (p Path) lastElement() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// PrimPath strips any property part.
func (p Path) PrimPath() Path {
	if !p.IsPropertyPath() {
		return p
	}
	s := string(p)
	slash := strings.LastIndexByte(s, '/')
	dot := strings.IndexByte(s[slash+1:], '.')
	prim := s[:slash+1+dot]
	if prim == "" {
		return AbsoluteRootPath
	}
	return Path(prim)
}

// Name returns the final prim name or the property name.
func (p Path) Name() string {
	if p.IsAbsoluteRoot() || p.IsEmpty() {
		return ""
	}
	last := p.lastElement()
	if i := strings.IndexByte(last, '.'); i >= 0 {
		return last[i+1:]
	}
	return last
}

// ParentPath returns the owning prim of a property, or the parent prim of a prim.
func (p Path) ParentPath() Path {
	if p.IsEmpty() || p.IsAbsoluteRoot() {
		return EmptyPath
	}
	if p.IsPropertyPath() {
		return p.PrimPath()
	}
	s := string(p)
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return AbsoluteRootPath
	}
	return Path(s[:i])
}

// Elements returns the prim names along p, excluding any property.
func (p Path) Elements() []string {
	prim := p.PrimPath()
	if prim.IsEmpty() || prim.IsAbsoluteRoot() {
		return nil
	}
	return strings.Split(strings.TrimPrefix(string(prim), "/"), "/")
}

// ElementCount is the number of prim names in p.
func (p Path) ElementCount() int {
	return len(p.Elements())
}

// AppendChild returns the child prim path.
func (p Path) AppendChild(name string) Path {
	if p.IsAbsoluteRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// AppendProperty returns the property path on prim p.
func (p Path) AppendProperty(name string) Path {
	return Path(string(p) + "." + name)
}

// HasPrefix reports whether p is prefix or lies beneath it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsAbsoluteRoot() {
		return !p.IsEmpty()
	}
	if p == prefix {
		return true
	}
	s, pre := string(p), string(prefix)
	return strings.HasPrefix(s, pre) && len(s) > len(pre) && (s[len(pre)] == '/' || s[len(pre)] == '.')
}
