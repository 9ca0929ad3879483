package memory

import "fmt"

func errNotFound(entity string, id int64) error {
	return fmt.Errorf("%s not found: %d", entity, id)
}
