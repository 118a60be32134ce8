package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
)

const defaultUserName = "Unknown User"

var ErrMissingClerkID = errors.New("clerk id is required")

type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UserRepository mirrors identity-provider users into the local users table.
type UserRepository struct {
	executor Executor
}

func NewUserRepository(exec Executor) *UserRepository {
	return &UserRepository{executor: exec}
}

// Sync upserts the user keyed by clerk id; an empty name is stored as "Unknown User".
func (r *UserRepository) Sync(ctx context.Context, clerkID, name string) error {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return ErrMissingClerkID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultUserName
	}

	_, err := r.executor.Exec(ctx, `
		INSERT INTO users (clerk_id, name)
		VALUES ($1, $2)
		ON CONFLICT (clerk_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
	`, clerkID, name)
	if err != nil {
		return db.Classify(fmt.Errorf("upsert user: %w", err))
	}
	return nil
}
