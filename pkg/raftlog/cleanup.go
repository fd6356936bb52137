package raftlog

import (
	"io"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
)

// resourceCleanup closes resources in reverse order of registration.
//
//	cleanup := newResourceCleanup(logger)
//	defer cleanup.Cleanup()
//	...
//	cleanup.Clear() // success, keep everything open
type resourceCleanup struct {
	logger    logging.Logger
	resources []namedCloser
}

type namedCloser struct {
	closer io.Closer
	name   string
}

func newResourceCleanup(logger logging.Logger) *resourceCleanup {
	return &resourceCleanup{
		logger:    logging.OrDefault(logger),
		resources: make([]namedCloser, 0, 8),
	}
}

// Add registers a resource to be closed.
func (rc *resourceCleanup) Add(closer io.Closer, name string) {
	rc.resources = append(rc.resources, namedCloser{closer: closer, name: name})
}

// Cleanup closes every registered resource, logging failures. It is safe to
// call more than once.
func (rc *resourceCleanup) Cleanup() {
	_ = rc.CloseAll()
}

// Clear forgets every registered resource without closing it.
func (rc *resourceCleanup) Clear() {
	rc.resources = rc.resources[:0]
}

// CloseAll closes every registered resource and returns the first error.
func (rc *resourceCleanup) CloseAll() error {
	var firstErr error
	for i := len(rc.resources) - 1; i >= 0; i-- {
		r := rc.resources[i]
		if r.closer == nil {
			continue
		}
		if err := r.closer.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			rc.logger.Warn("failed to close resource", logging.String("resource", r.name), logging.Error(err))
		}
	}
	rc.resources = rc.resources[:0]
	return firstErr
}

// Len returns the number of registered resources.
func (rc *resourceCleanup) Len() int {
	return len(rc.resources)
}
