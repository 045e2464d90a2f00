package auth

import (
	"context"
)

// Directory resolves whether an identity is a known user
type Directory interface {
	Exists(ctx context.Context, identity string) (bool, error)
}

// StaticDirectory is a fixed list of users. An empty list accepts every identity.
type StaticDirectory struct {
	users map[string]struct{}
}

// NewStaticDirectory creates a directory from a user list
func NewStaticDirectory(users []string) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]struct{}, len(users))}
	for _, u := range users {
		d.users[u] = struct{}{}
	}
	return d
}

// Exists reports whether identity is listed
func (d *StaticDirectory) Exists(ctx context.Context, identity string) (bool, error) {
	if identity == "" {
		return false, nil
	}
	if len(d.users) == 0 {
		return true, nil
	}
	_, ok := d.users[identity]
	return ok, nil
}

var _ Directory = (*StaticDirectory)(nil)
