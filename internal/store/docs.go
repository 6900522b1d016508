package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// SymlinkedFiles are stored in the project folder and symlinked into
// the worktree, so notes survive worktree removal and recreation.
var SymlinkedFiles = []string{"PROJECT.md", "CLAUDE.md"}

// WriteDocs materializes the PROJECT.md and CLAUDE.md templates in the
// project folder. Existing files are left alone so notes from a
// previous project with the same name are preserved.
func (s *Store) WriteDocs(p *Project) error {
	dir := s.ProjectDir(p.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project folder %s: %w", dir, err)
	}

	projectMD := filepath.Join(dir, "PROJECT.md")
	if _, err := os.Stat(projectMD); os.IsNotExist(err) {
		if err := os.WriteFile(projectMD, []byte(projectTemplate(p)), 0o644); err != nil {
			return fmt.Errorf("failed to write PROJECT.md: %w", err)
		}
	}

	claudeMD := filepath.Join(dir, "CLAUDE.md")
	if _, err := os.Stat(claudeMD); os.IsNotExist(err) {
		if err := os.WriteFile(claudeMD, []byte(claudeTemplate(p)), 0o644); err != nil {
			return fmt.Errorf("failed to write CLAUDE.md: %w", err)
		}
	}
	return nil
}

func projectTemplate(p *Project) string {
	return fmt.Sprintf(`# %s

## Description
%s

## Branch
`+"`%s`"+`

## Ports
- Webserver: %d
- Flower: %d
- Postgres: %d
- MySQL: %d
- Redis: %d
- SSH: %d

## Notes
Add your notes here...
`, p.Name, p.Description, p.Branch,
		p.Ports.Webserver, p.Ports.Flower, p.Ports.Postgres,
		p.Ports.MySQL, p.Ports.Redis, p.Ports.SSH)
}

func claudeTemplate(p *Project) string {
	return fmt.Sprintf(`# Project Context for AI Assistants

## Project: %s

### Branch
`+"`%s`"+`

### Description
%s

### Development Environment
- **Python**: %s
- **Backend**: %s
- **Webserver**: http://localhost:%d

### What I'm Working On
<!-- Add context about what you're building, the problem you're solving, etc. -->

### Key Files/Areas
<!-- List the main files or directories relevant to this work -->

### Testing Strategy
<!-- How to test the changes -->

### Notes & Decisions
<!-- Important decisions, gotchas, things to remember -->

### Related Issues/PRs
<!-- Links to related GitHub issues, discussions, etc. -->
`, p.Name, p.Branch, p.Description, p.PythonVersion, p.Backend, p.Ports.Webserver)
}
