package compiler

import (
	"sync"

	"github.com/apex/log"
)

// Registry hands out scoped compiler project registrations. The registration
// is a critical section: only one project can be installed at a time, and a
// second Register blocks until the first registration is deregistered. This
// keeps concurrent source-language loads from seeing each other's project.
type Registry struct {
	section sync.Mutex

	mu     sync.RWMutex
	active *Project
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs the given project as the active one and returns a handle
// that must be deregistered on every exit path. Blocks while another
// registration is still active.
func (r *Registry) Register(project *Project) *Registration {
	r.section.Lock()

	r.mu.Lock()
	r.active = project
	r.mu.Unlock()

	if project != nil {
		log.Debugf("Registry: Registered compiler project '%s'", project.Name())
	}

	return &Registration{registry: r, project: project}
}

// Active returns the currently installed project, or nil if none.
func (r *Registry) Active() *Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Registration is the deregister handle returned by Register.
type Registration struct {
	registry *Registry
	project  *Project
	once     sync.Once
}

// Deregister removes the project from the registry and reopens the critical
// section. Safe to call more than once.
func (reg *Registration) Deregister() {
	reg.once.Do(func() {
		reg.registry.mu.Lock()
		reg.registry.active = nil
		reg.registry.mu.Unlock()

		if reg.project != nil {
			log.Debugf("Registry: Deregistered compiler project '%s'", reg.project.Name())
		}

		reg.registry.section.Unlock()
	})
}
