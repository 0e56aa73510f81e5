package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type emptyTimelineError struct {
	source string
}

func (e emptyTimelineError) Error() string {
	return fmt.Sprintf("no events in %s", e.source)
}
