package store

// SetAfterDeleteHook installs fn between the delete and insert halves of
// every Replace* transaction.
func (s *Store) SetAfterDeleteHook(fn func(kind string) error) {
	s.afterDelete = fn
}
