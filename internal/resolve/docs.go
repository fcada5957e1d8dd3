package resolve

import "github.com/starford/quarry/internal/source"

// FindDoc returns the hash of the page called name.
//
// The search runs over an explicit stack. It starts with the top-level
// entries pushed in declared order and always pops the last entry. A
// matching page ends the search. A category pushes its items in declared
// order. For
//
//	guides[intro(h1), advanced[intro(h2)]]
//
// the stack after expanding guides is [intro(h1), advanced]; advanced is
// popped first, so the answer is h2.
func FindDoc(docs []source.DocEntry, name string) (string, bool) {
	stack := make([]*source.DocEntry, 0, len(docs))
	for i := range docs {
		stack = append(stack, &docs[i])
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch e.Kind {
		case source.DocPage:
			if e.Name == name {
				return e.Hash, true
			}
		case source.DocCategory:
			for i := range e.Items {
				stack = append(stack, &e.Items[i])
			}
		}
	}
	return "", false
}
