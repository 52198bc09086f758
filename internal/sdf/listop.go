package sdf

// ListOp is an editable list value: either an explicit list or a set of
// prepend/append/delete edits applied over a weaker opinion.
type ListOp[T comparable] struct {
	Explicit       bool
	ExplicitItems  []T
	PrependedItems []T
	AppendedItems  []T
	DeletedItems   []T
}

// ExplicitListOp returns an explicit list op holding items.
func ExplicitListOp[T comparable](items ...T) ListOp[T] {
	return ListOp[T]{Explicit: true, ExplicitItems: items}
}

// PrependedListOp returns a list op prepending items.
func PrependedListOp[T comparable](items ...T) ListOp[T] {
	return ListOp[T]{PrependedItems: items}
}

// ApplyEditsToList returns the result of applying op over list.
func (op ListOp[T]) ApplyEditsToList(list []T) []T {
	if op.Explicit {
		return append([]T(nil), op.ExplicitItems...)
	}
	deleted := make(map[T]struct{}, len(op.DeletedItems)+len(op.PrependedItems)+len(op.AppendedItems))
	for _, item := range op.DeletedItems {
		deleted[item] = struct{}{}
	}
	skip := func(item T) bool {
		_, ok := deleted[item]
		return ok
	}

	out := make([]T, 0, len(op.PrependedItems)+len(list)+len(op.AppendedItems))
	seen := make(map[T]struct{})
	add := func(item T) {
		if skip(item) {
			return
		}
		if _, dup := seen[item]; dup {
			return
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	for _, item := range op.PrependedItems {
		add(item)
	}
	for _, item := range list {
		add(item)
	}
	for _, item := range op.AppendedItems {
		add(item)
	}
	return out
}

// Items returns the edited items with no weaker opinion.
func (op ListOp[T]) Items() []T {
	return op.ApplyEditsToList(nil)
}
