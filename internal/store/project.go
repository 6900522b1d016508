package store

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/abm/internal/ports"
)

// Project is the persisted record for one managed project. The record
// lives at <store>/projects/<name>/.abm and the name always matches its
// folder name.
type Project struct {
	// Name is the unique, filesystem-safe project identifier.
	Name string `json:"name"`

	// Branch is the git branch checked out in the worktree.
	Branch string `json:"branch"`

	// WorktreePath is the absolute path of the git worktree.
	WorktreePath string `json:"worktree_path"`

	// Ports are the per-service host ports assigned to this project.
	Ports ports.Ports `json:"ports"`

	// Description is free-text context for the project.
	Description string `json:"description"`

	// PRNumber is the linked pull request, if any.
	PRNumber *int `json:"pr_number"`

	// Backend is the metadata database backend (sqlite, postgres, mysql).
	Backend string `json:"backend"`

	// PythonVersion selects the interpreter inside breeze.
	PythonVersion string `json:"python_version"`

	// CreatedAt is the RFC 3339 creation timestamp.
	CreatedAt string `json:"created_at"`

	// Frozen marks a project whose regenerable dependency directory has
	// been deleted to reclaim disk space.
	Frozen bool `json:"frozen"`

	// Adopted marks a project created from a pre-existing worktree.
	// Adopted projects refuse removal unless forced.
	Adopted bool `json:"adopted"`
}

// breeze default ports and the +100 abm defaults, used to migrate
// records written before the offset was introduced.
var (
	legacyDefaultPorts  = ports.Ports{Webserver: 28080, Flower: 25555, Postgres: 25433, MySQL: 23306, Redis: 26379, SSH: 12322}
	currentDefaultPorts = ports.Ports{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422}
)

// decodeProject parses a stored record, upgrading legacy layouts:
//
//   - records written before adopt/disown carried a managed_worktree
//     flag instead of adopted (adopted == !managed_worktree)
//   - records written before the ssh service existed derive their ssh
//     port from the webserver offset
//   - records still on the vanilla-breeze default ports are shifted to
//     the +100 defaults so they stop colliding with plain breeze
func decodeProject(data []byte) (*Project, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project record: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project record: %w", err)
	}

	if _, ok := raw["adopted"]; !ok {
		if legacy, lok := raw["managed_worktree"]; lok {
			var managed bool
			if err := json.Unmarshal(legacy, &managed); err == nil {
				p.Adopted = !managed
			}
		}
	}

	migratePorts(raw, &p)
	return &p, nil
}

func migratePorts(raw map[string]json.RawMessage, p *Project) {
	portsRaw, ok := raw["ports"]
	if !ok {
		return
	}
	var fields map[string]int
	if err := json.Unmarshal(portsRaw, &fields); err != nil {
		return
	}

	if _, ok := fields["ssh"]; !ok {
		p.Ports.SSH = legacyDefaultPorts.SSH + (p.Ports.Webserver - legacyDefaultPorts.Webserver)
	}

	// Records on the exact legacy defaults move to the current ones;
	// records offset from the legacy defaults keep their offset.
	switch {
	case matchesDefaults(p.Ports, legacyDefaultPorts):
		p.Ports = currentDefaultPorts
	case p.Ports.Webserver > 0 && p.Ports.Webserver < currentDefaultPorts.Webserver:
		offset := p.Ports.Webserver - legacyDefaultPorts.Webserver
		for _, svc := range ports.Services {
			p.Ports.Set(svc, currentDefaultPorts.Get(svc)+offset)
		}
	}
}

func matchesDefaults(p, defaults ports.Ports) bool {
	for _, svc := range ports.Services {
		if p.Get(svc) != defaults.Get(svc) {
			return false
		}
	}
	return true
}
