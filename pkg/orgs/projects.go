package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// Projects is the project collaborator the engine consults during
// organization deletion and settings validation.
type Projects interface {
	FindProjectsByOrg(ctx context.Context, orgID string) ([]*Project, error)
	FindProjectByID(ctx context.Context, projectID string) (*Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// PostgresProjects implements Projects using PostgreSQL
type PostgresProjects struct {
	db *sql.DB
}

// NewPostgresProjects creates a new PostgresProjects
func NewPostgresProjects(db *sql.DB) *PostgresProjects {
	return &PostgresProjects{db: db}
}

// FindProjectsByOrg lists the projects of an organization
func (p *PostgresProjects) FindProjectsByOrg(ctx context.Context, orgID string) ([]*Project, error) {
	query := `SELECT id, team_id, name FROM projects WHERE team_id = $1 ORDER BY name ASC`
	rows, err := p.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.ID, &project.OrgID, &project.Name); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// FindProjectByID retrieves a project by ID
func (p *PostgresProjects) FindProjectByID(ctx context.Context, projectID string) (*Project, error) {
	query := `SELECT id, team_id, name FROM projects WHERE id = $1`
	project := &Project{}
	err := p.db.QueryRowContext(ctx, query, projectID).Scan(&project.ID, &project.OrgID, &project.Name)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("project %s not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// DeleteProject removes a project row
func (p *PostgresProjects) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// MemoryProjects is an in-memory Projects for tests
type MemoryProjects struct {
	mu       sync.Mutex
	projects map[string]*Project
}

// NewMemoryProjects creates a MemoryProjects seeded with the given projects
func NewMemoryProjects(seed ...*Project) *MemoryProjects {
	p := &MemoryProjects{projects: map[string]*Project{}}
	for _, project := range seed {
		copy := *project
		p.projects[project.ID] = &copy
	}
	return p
}

// Put stores or replaces a project
func (p *MemoryProjects) Put(project *Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy := *project
	p.projects[project.ID] = &copy
}

// FindProjectsByOrg lists the projects of an organization
func (p *MemoryProjects) FindProjectsByOrg(ctx context.Context, orgID string) ([]*Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var projects []*Project
	for _, project := range p.projects {
		if project.OrgID == orgID {
			copy := *project
			projects = append(projects, &copy)
		}
	}
	return projects, nil
}

// FindProjectByID retrieves a project by ID
func (p *MemoryProjects) FindProjectByID(ctx context.Context, projectID string) (*Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	project, ok := p.projects[projectID]
	if !ok {
		return nil, apperr.NotFound("project %s not found", projectID)
	}
	copy := *project
	return &copy, nil
}

// DeleteProject removes a project
func (p *MemoryProjects) DeleteProject(ctx context.Context, projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.projects, projectID)
	return nil
}
