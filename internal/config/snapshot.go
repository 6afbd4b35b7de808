package config

import "sync/atomic"

// Snapshot holds the current Config and allows it to be swapped out
// atomically via Refresh, so concurrent readers (e.g. every in-flight
// /search request) never observe a torn read.
type Snapshot struct {
	v atomic.Value
}

// NewSnapshot loads the initial configuration and wraps it in a Snapshot.
func NewSnapshot() (*Snapshot, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	return NewSnapshotFrom(cfg), nil
}

// NewSnapshotFrom wraps an already-resolved Config, without touching the
// environment. Used by tests and by callers that assemble Config from
// something other than the process environment.
func NewSnapshotFrom(cfg Config) *Snapshot {
	s := &Snapshot{}
	s.v.Store(cfg)
	return s
}

// Get returns the currently active configuration.
func (s *Snapshot) Get() Config {
	return s.v.Load().(Config)
}

// Refresh re-reads the environment and atomically replaces the active
// configuration. On validation failure the previous snapshot is retained.
func (s *Snapshot) Refresh() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	s.v.Store(cfg)
	return nil
}
