package mutate

import "fmt"

// NotFoundError reports navigation that points at structure the document does not have.
// Mutators that are handed such a state do nothing; callers only see it from Resolve.
type NotFoundError struct {
	Kind string
	Path []int
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %v", e.Kind, e.Path)
}
