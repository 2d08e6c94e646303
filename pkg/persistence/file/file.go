// Package file provides file-based persistence for workflow graphs. Each
// workflow is stored as a single JSON document, which makes the full-replace
// commit naturally atomic: the file is only rewritten after every graph rule
// has passed. Used for local development and unit tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
}

// NewPersistence creates file-backed persistence rooted at the given
// directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
	}
}

// WorkflowRepository returns the workflow repository.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
