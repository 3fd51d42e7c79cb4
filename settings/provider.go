package settings

import "sync/atomic"

// Provider supplies the settings used for an evaluation. The returned value is an immutable snapshot: a
// reload never changes a snapshot that was already handed out.
type Provider interface {
	Load() *Settings
}

// Static is a Provider that always returns the same settings.
type Static struct {
	s *Settings
}

// NewStatic validates the settings and returns a Provider for them.
func NewStatic(s Settings) (*Static, error) {
	s = s.clone()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Static{s: &s}, nil
}

func (p *Static) Load() *Settings {
	return p.s
}

// Reloadable is a Provider whose settings can be swapped at runtime. The whole set of settings is swapped
// at once, so an evaluation never observes a mix of old and new thresholds.
type Reloadable struct {
	cur atomic.Pointer[Settings]
}

// NewReloadable validates the settings and returns a Reloadable holding them.
func NewReloadable(s Settings) (*Reloadable, error) {
	r := &Reloadable{}
	if err := r.Store(s); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reloadable) Load() *Settings {
	return r.cur.Load()
}

// Store validates the settings and makes them the current settings. Invalid settings leave the current
// settings untouched.
func (r *Reloadable) Store(s Settings) error {
	s = s.clone()
	if err := s.Validate(); err != nil {
		return err
	}
	r.cur.Store(&s)
	return nil
}

// Reload loads the settings file at the path passed and stores it.
func (r *Reloadable) Reload(path string) error {
	s, err := Load(path)
	if err != nil {
		return err
	}
	return r.Store(s)
}
