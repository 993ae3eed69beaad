package approval

import (
	"context"
	"fmt"
	"sort"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

// RoleSource lists roles ordered by sequence ascending.
type RoleSource interface {
	ListBySequence(ctx context.Context) ([]model.Role, error)
}

// Registry is the ordered set of approval roles.
type Registry struct {
	roles []model.Role
	index map[uint]int
}

// NewRegistry validates that sequences are positive and unique and orders roles by sequence.
func NewRegistry(roles []model.Role) (*Registry, error) {
	ordered := make([]model.Role, len(roles))
	copy(ordered, roles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	index := make(map[uint]int, len(ordered))
	for i, role := range ordered {
		if role.Sequence <= 0 {
			return nil, apperror.InvalidInput("sequence", fmt.Sprintf("role %q has non-positive sequence %d", role.Name, role.Sequence))
		}
		if i > 0 && ordered[i-1].Sequence == role.Sequence {
			return nil, apperror.InvalidInput("sequence", fmt.Sprintf("roles %q and %q share sequence %d", ordered[i-1].Name, role.Name, role.Sequence))
		}
		if _, dup := index[role.ID]; dup {
			return nil, apperror.InvalidInput("id", fmt.Sprintf("role id %d listed twice", role.ID))
		}
		index[role.ID] = i
	}

	return &Registry{roles: ordered, index: index}, nil
}

// LoadRegistry builds a Registry from src.
func LoadRegistry(ctx context.Context, src RoleSource) (*Registry, error) {
	roles, err := src.ListBySequence(ctx)
	if err != nil {
		return nil, apperror.FromDB(err, "roles", "all")
	}
	return NewRegistry(roles)
}

// Roles returns the roles in sequence order.
func (r *Registry) Roles() []model.Role {
	out := make([]model.Role, len(r.roles))
	copy(out, r.roles)
	return out
}

func (r *Registry) Len() int {
	return len(r.roles)
}

func (r *Registry) Role(id uint) (model.Role, bool) {
	i, ok := r.index[id]
	if !ok {
		return model.Role{}, false
	}
	return r.roles[i], true
}

// position returns the rank of a role in the chain. Unknown roles sort last.
func (r *Registry) position(id uint) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return len(r.roles)
}
