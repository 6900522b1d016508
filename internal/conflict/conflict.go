// Package conflict checks a project's recorded ports against the live
// socket table. The on-disk allocation can drift from reality — manual
// breeze runs, stale records, crashed containers — so entry commands
// probe before launching anything and offer to repair only the
// services that actually collide.
package conflict

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/ports"
	"github.com/fyrsmithlabs/abm/internal/store"
)

// ErrUnresolved indicates the user declined reallocation and the
// conflict stands.
var ErrUnresolved = errors.New("port conflict unresolved")

// Probe reports whether a port is currently bound on the host.
type Probe func(port int) bool

// DialProbe probes by attempting a TCP connection to localhost.
func DialProbe(timeout time.Duration) Probe {
	return func(port int) bool {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)), timeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Conflict is one service whose recorded port is live-bound by
// something else.
type Conflict struct {
	Service ports.Service
	Port    int
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s:%d", c.Service, c.Port)
}

// Detect probes every service port and returns those currently bound,
// in service order.
func Detect(probe Probe, p ports.Ports) []Conflict {
	var conflicts []Conflict
	for _, svc := range ports.Services {
		port := p.Get(svc)
		if probe(port) {
			conflicts = append(conflicts, Conflict{Service: svc, Port: port})
		}
	}
	return conflicts
}

// Resolver repairs detected conflicts by reallocating only the
// conflicting services, with the user's consent.
type Resolver struct {
	Store   *store.Store
	Ranges  ports.Ranges
	Probe   Probe
	Confirm func(question string) bool
	Logger  *zap.Logger
}

// NewResolver wires a resolver. Logger may be nil.
func NewResolver(st *store.Store, ranges ports.Ranges, probe Probe, confirm func(string) bool, logger *zap.Logger) (*Resolver, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if probe == nil {
		return nil, errors.New("probe is required")
	}
	if confirm == nil {
		return nil, errors.New("confirm is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Store: st, Ranges: ranges, Probe: probe, Confirm: confirm, Logger: logger}, nil
}

// Resolve offers to reallocate the conflicting services and persists
// the repaired record on acceptance. Declining returns ErrUnresolved.
// Only the conflicting services change; the rest of the port set stays
// as allocated.
func (r *Resolver) Resolve(project *store.Project, conflicts []Conflict) (ports.Ports, error) {
	if len(conflicts) == 0 {
		return project.Ports, nil
	}

	names := make([]string, len(conflicts))
	services := make([]ports.Service, len(conflicts))
	for i, c := range conflicts {
		names[i] = c.String()
		services[i] = c.Service
	}

	question := fmt.Sprintf("Ports in use: %s. Reallocate them for project '%s'?",
		strings.Join(names, ", "), project.Name)
	if !r.Confirm(question) {
		return ports.Ports{}, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(names, ", "))
	}

	var repaired ports.Ports
	err := r.Store.WithLock(project.Name, func() error {
		// Re-read the project set under the lock so the used-port
		// picture is as fresh as possible before committing.
		existing, err := r.Store.List()
		if err != nil {
			return err
		}
		others := make([]ports.Ports, 0, len(existing))
		for _, p := range existing {
			if p.Name != project.Name {
				others = append(others, p.Ports)
			}
		}

		repaired, err = ports.Reallocate(r.Ranges, project.Ports, services, others, func(port int) bool {
			return r.Probe(port)
		})
		if err != nil {
			return err
		}

		project.Ports = repaired
		return r.Store.Put(project)
	})
	if err != nil {
		return ports.Ports{}, err
	}

	r.Logger.Info("reallocated conflicting ports",
		zap.String("project", project.Name),
		zap.Strings("services", names))
	return repaired, nil
}
