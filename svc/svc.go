// svc contains the redate service: an HTTP surface that runs timestamp
// rewrites on configured repositories and keeps a journal of the outcomes.
package svc

import (
	"net/http"

	"go.etcd.io/bbolt"
)

// Svc is the redate service.
//
// Svc uses [bbolt.DB] as the journal database. Concurrent redate requests
// for the same repository are serialized through a per-repository lock.
type Svc struct {
	// config of the server.
	config *Config

	// db holding the operation journal.
	db        *bbolt.DB
	tmpDbPath string

	// mux with the HTTP surface.
	mux *http.ServeMux

	metrics *metrics

	// repolocks guards the per-repository locks, see lockRepo.
	repolocks chan map[string]*waitingChan
}

// New verifies the config and creates the service.
func New(cfg *Config) (*Svc, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := verifyConfig(cfg); err != nil {
		return nil, err
	}

	svc := &Svc{
		config:    cfg,
		metrics:   newMetrics(),
		repolocks: make(chan map[string]*waitingChan, 1),
	}
	svc.repolocks <- make(map[string]*waitingChan)

	if err := svc.setupDb(); err != nil {
		return nil, err
	}

	return svc, nil
}
