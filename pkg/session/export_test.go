package session

// SetSweepFunc replaces the function run by each sweep pass.
func SetSweepFunc(r *Registry, fn func() int) {
	r.sweep = fn
}

// Retire stops s from starting executions, as eviction does.
func Retire(s *Session) bool {
	return s.retire()
}
