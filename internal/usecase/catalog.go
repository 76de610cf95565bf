package usecase

import (
	"fmt"
	"sync"

	"github.com/nao1215/dossiersim/internal/model"
)

// Catalog is the set of use cases available to run, in registration order.
// It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]model.UseCase
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:  make(map[string]model.UseCase),
		order: make([]string, 0),
	}
}

// DefaultCatalog returns a new catalog holding the built-in use cases.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, uc := range Builtins() {
		// Built-ins are validated by tests; a failure here is a programming error.
		if err := c.Register(uc); err != nil {
			panic(fmt.Sprintf("invalid built-in use case: %v", err))
		}
	}
	return c
}

// Register validates uc and adds it to the catalog.
func (c *Catalog) Register(uc model.UseCase) error {
	if err := Validate(uc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[uc.ID]; ok {
		return &DefinitionError{UseCaseID: uc.ID, StepIndex: -1, Err: ErrUseCaseExists}
	}
	c.byID[uc.ID] = uc
	c.order = append(c.order, uc.ID)
	return nil
}

// Get returns the use case registered under id.
func (c *Catalog) Get(id string) (model.UseCase, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	uc, ok := c.byID[id]
	if !ok {
		return model.UseCase{}, fmt.Errorf("%w: %s", ErrUnknownUseCase, id)
	}
	return uc, nil
}

// List returns all use cases in registration order.
func (c *Catalog) List() []model.UseCase {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.UseCase, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the registered ids in registration order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Len returns the number of registered use cases.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
