// Package storage provides the link store interface, its backends and common errors.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go-shortlink/types"
)

// Common errors returned by storage operations.
var (
	ErrIDExists               = errors.New("short link id already exists")
	ErrUnavailable            = errors.New("link store unavailable")
	ErrStorageCapacityReached = fmt.Errorf("%w: storage capacity reached", ErrUnavailable)
	ErrInvalidTableName       = errors.New("invalid table name")
)

// Storage is a uniqueness-enforcing key-value store for short links.
//
// PutIfAbsent writes link only if no record with link.ID exists; the check and
// the write are a single atomic step. It returns ErrIDExists on conflict and an
// error wrapping ErrUnavailable on store failures.
//
// Get reports found=false for a missing id instead of an error.
type Storage interface {
	PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error)
	Get(ctx context.Context, id string) (types.ShortLink, bool, error)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validTableName guards table names that get interpolated into SQL.
func validTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
