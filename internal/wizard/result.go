package wizard

import "github.com/agrifair/agriwizard/internal/i18n"

// Result projects the current recommendation for display. ok is false
// unless the last submission succeeded.
func (s *Session) Result() (Result, bool) {
	return s.Snapshot().Result()
}

// Labels resolves the label table for the session's current language.
func (s *Session) Labels() i18n.Labels {
	return s.Snapshot().Labels()
}
