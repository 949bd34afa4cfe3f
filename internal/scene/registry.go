package scene

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Storage is the persistence surface the Registry needs.
// Satisfied by *Repository; narrowed for testing.
type Storage interface {
	Create(ctx context.Context, s *Scene) error
	List(ctx context.Context) ([]*Scene, error)
	Update(ctx context.Context, s *Scene) error
	Delete(ctx context.Context, id string) error
}

// Registry holds scene definitions with an in-memory cache over persistence.
type Registry struct {
	repo Storage

	mu    sync.RWMutex
	cache map[string]*Scene
}

// NewRegistry creates a scene registry and warms the cache.
func NewRegistry(ctx context.Context, repo Storage) (*Registry, error) {
	r := &Registry{
		repo:  repo,
		cache: make(map[string]*Scene),
	}

	scenes, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	for _, s := range scenes {
		r.cache[s.ID] = s
	}

	return r, nil
}

// Create validates and stores a new scene.
func (r *Registry) Create(ctx context.Context, s *Scene) (*Scene, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidScene)
	}
	if len(s.Actions) == 0 {
		return nil, fmt.Errorf("%w: at least one action is required", ErrInvalidScene)
	}
	for i, a := range s.Actions {
		if a.DeviceID == "" || a.Action == "" {
			return nil, fmt.Errorf("%w: action %d missing device or action name", ErrInvalidScene, i)
		}
	}

	clone := cloneScene(s)
	if clone.ID == "" {
		clone.ID = GenerateID()
	}
	now := time.Now().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if err := r.repo.Create(ctx, clone); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[clone.ID] = clone
	r.mu.Unlock()

	return cloneScene(clone), nil
}

// Get returns the scene with the given ID.
func (r *Registry) Get(id string) (*Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneScene(s), nil
}

// List returns all scenes sorted by name.
func (r *Registry) List() []*Scene {
	r.mu.RLock()
	scenes := make([]*Scene, 0, len(r.cache))
	for _, s := range r.cache {
		scenes = append(scenes, cloneScene(s))
	}
	r.mu.RUnlock()

	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes
}

// Update replaces a scene's definition.
func (r *Registry) Update(ctx context.Context, s *Scene) (*Scene, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidScene)
	}

	clone := cloneScene(s)
	clone.UpdatedAt = time.Now().UTC()

	if err := r.repo.Update(ctx, clone); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[clone.ID] = clone
	r.mu.Unlock()

	return cloneScene(clone), nil
}

// Delete removes a scene.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()

	return nil
}

// Count returns the number of scenes in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func cloneScene(s *Scene) *Scene {
	clone := *s
	clone.Actions = make([]Action, len(s.Actions))
	for i, a := range s.Actions {
		clone.Actions[i] = Action{
			DeviceID:   a.DeviceID,
			Action:     a.Action,
			Parameters: copyParams(a.Parameters),
		}
	}
	return &clone
}

func copyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return cp
}
