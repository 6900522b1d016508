// Package ports allocates host ports for the fixed set of breeze
// services so that parallel projects never bind the same port for the
// same service.
//
// Uniqueness is guaranteed per service, not globally: a webserver port
// and a redis port may collide numerically across projects. The default
// ranges start +100 above the vanilla breeze defaults so abm-managed
// environments are visually distinguishable and never fight a plain
// `breeze` invocation over its default ports.
package ports

import (
	"errors"
	"fmt"
	"strconv"
)

// Service names one of the breeze subsystems that needs an isolated
// host port per project.
type Service string

const (
	Webserver Service = "webserver"
	Flower    Service = "flower"
	Postgres  Service = "postgres"
	MySQL     Service = "mysql"
	Redis     Service = "redis"
	SSH       Service = "ssh"
)

// Services lists all services in a stable order. Allocation iterates in
// this order, which keeps results deterministic.
var Services = []Service{Webserver, Flower, Postgres, MySQL, Redis, SSH}

// Range is an inclusive [Min, Max] port interval for one service.
type Range struct {
	Min int
	Max int
}

// Ranges maps each service to its configured port range. Ranges of
// different services may overlap; the allocator never assumes
// disjointness.
type Ranges map[Service]Range

// DefaultRanges returns the stock per-service ranges. Breeze defaults
// are 28080, 25555, 25433, 23306, 26379 and 12322; abm starts +100
// above each.
func DefaultRanges() Ranges {
	return Ranges{
		Webserver: {Min: 28180, Max: 28999},
		Flower:    {Min: 25655, Max: 25999},
		Postgres:  {Min: 25533, Max: 25999},
		MySQL:     {Min: 23406, Max: 23999},
		Redis:     {Min: 26479, Max: 26999},
		SSH:       {Min: 12422, Max: 12999},
	}
}

// Ports holds one project's assigned port per service.
type Ports struct {
	Webserver int `json:"webserver"`
	Flower    int `json:"flower"`
	Postgres  int `json:"postgres"`
	MySQL     int `json:"mysql"`
	Redis     int `json:"redis"`
	SSH       int `json:"ssh"`
}

// Get returns the port assigned to a service.
func (p Ports) Get(s Service) int {
	switch s {
	case Webserver:
		return p.Webserver
	case Flower:
		return p.Flower
	case Postgres:
		return p.Postgres
	case MySQL:
		return p.MySQL
	case Redis:
		return p.Redis
	case SSH:
		return p.SSH
	}
	return 0
}

// Set assigns the port for a service.
func (p *Ports) Set(s Service, port int) {
	switch s {
	case Webserver:
		p.Webserver = port
	case Flower:
		p.Flower = port
	case Postgres:
		p.Postgres = port
	case MySQL:
		p.MySQL = port
	case Redis:
		p.Redis = port
	case SSH:
		p.SSH = port
	}
}

// Env returns the breeze environment variables that bind this port set,
// plus the instance name shown in the Airflow UI navbar when
// projectName is non-empty.
func (p Ports) Env(projectName string) map[string]string {
	env := map[string]string{
		"WEB_HOST_PORT":      strconv.Itoa(p.Webserver),
		"FLOWER_HOST_PORT":   strconv.Itoa(p.Flower),
		"POSTGRES_HOST_PORT": strconv.Itoa(p.Postgres),
		"MYSQL_HOST_PORT":    strconv.Itoa(p.MySQL),
		"REDIS_HOST_PORT":    strconv.Itoa(p.Redis),
		"SSH_PORT":           strconv.Itoa(p.SSH),
	}
	if projectName != "" {
		env["AIRFLOW__API__INSTANCE_NAME"] = "ABM: " + projectName
	}
	return env
}

// ErrRangeExhausted reports that a service has no free port left in its
// configured range.
var ErrRangeExhausted = errors.New("port range exhausted")

// ExhaustedError identifies which service ran out of ports.
type ExhaustedError struct {
	Service Service
	Range   Range
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no available %s port in range %d-%d", e.Service, e.Range.Min, e.Range.Max)
}

func (e *ExhaustedError) Unwrap() error { return ErrRangeExhausted }

// Allocate assigns a port per service for a new project, given the port
// sets of every existing project. For each service it scans ascending
// from Range.Min and takes the first port no existing project uses for
// that same service: greedy first-fit, deterministic for a fixed input.
// Allocation is all-or-nothing; on exhaustion no partial result is
// returned.
func Allocate(ranges Ranges, existing []Ports) (Ports, error) {
	return allocate(ranges, Ports{}, Services, existing, nil)
}

// Reallocate replaces the ports of the named services in current,
// keeping every other service untouched. The avoid probe, when
// non-nil, additionally rejects candidate ports that are live-bound on
// the host (conflict repair re-checks reality, not just bookkeeping).
// existing must not include the project being repaired.
func Reallocate(ranges Ranges, current Ports, services []Service, existing []Ports, avoid func(port int) bool) (Ports, error) {
	return allocate(ranges, current, services, existing, avoid)
}

func allocate(ranges Ranges, base Ports, services []Service, existing []Ports, avoid func(port int) bool) (Ports, error) {
	result := base
	for _, svc := range services {
		r, ok := ranges[svc]
		if !ok {
			return Ports{}, fmt.Errorf("no range configured for service %s", svc)
		}

		used := make(map[int]bool, len(existing))
		for _, p := range existing {
			used[p.Get(svc)] = true
		}

		port, ok := firstFree(r, used, avoid)
		if !ok {
			return Ports{}, &ExhaustedError{Service: svc, Range: r}
		}
		result.Set(svc, port)
	}
	return result, nil
}

func firstFree(r Range, used map[int]bool, avoid func(port int) bool) (int, bool) {
	for port := r.Min; port <= r.Max; port++ {
		if used[port] {
			continue
		}
		if avoid != nil && avoid(port) {
			continue
		}
		return port, true
	}
	return 0, false
}
