package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"oap/internal/provision"
)

// PutUser inserts or replaces a user row.
func (s *Store) PutUser(ctx context.Context, user provision.User) error {
	if strings.TrimSpace(user.UserID) == "" {
		return fmt.Errorf("put user: %w: empty user id", provision.ErrInvalidInput)
	}
	_, err := s.exec(ctx, s.dialect.UpsertUser,
		user.UserID, user.WWID, user.Email, user.UserName, user.FirstName, user.LastName, user.UserGroup,
	)
	if err != nil {
		return fmt.Errorf("put user %s: %w", user.UserID, err)
	}
	return nil
}

// GetUser resolves a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (provision.User, error) {
	ctx = ensureContext(ctx)
	stmt := fmt.Sprintf("SELECT %s FROM users WHERE user_id = ?", strings.Join(userColumns, ", "))
	var user provision.User
	err := s.retry(ctx, func() error {
		return s.db.QueryRowContext(ctx, stmt, userID).Scan(userDest(&user)...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return provision.User{}, fmt.Errorf("user %s: %w", userID, provision.ErrNotFound)
	}
	if err != nil {
		return provision.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

// CreateController registers a controller host.
func (s *Store) CreateController(ctx context.Context, c provision.Controller) (provision.Controller, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Second)
	res, err := s.exec(ctx,
		"INSERT INTO controllers (name, location, created_at) VALUES (?, ?, ?)",
		c.Name, c.Location, provision.FormatTime(c.CreatedAt),
	)
	if err != nil {
		return provision.Controller{}, fmt.Errorf("create controller %q: %w", c.Name, err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return provision.Controller{}, fmt.Errorf("read controller id: %w", err)
	}
	return c, nil
}

// ListControllers returns controllers ordered by name.
func (s *Store) ListControllers(ctx context.Context) ([]provision.Controller, error) {
	ctx = ensureContext(ctx)
	var out []provision.Controller
	err := s.retry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT id, name, location, created_at FROM controllers ORDER BY name ASC, id ASC")
		if err != nil {
			return err
		}
		defer rows.Close()
		out = []provision.Controller{}
		for rows.Next() {
			var (
				c         provision.Controller
				createdAt string
			)
			if err := rows.Scan(&c.ID, &c.Name, &c.Location, &createdAt); err != nil {
				return err
			}
			c.CreatedAt, _ = provision.ParseTime(createdAt)
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list controllers: %w", err)
	}
	return out, nil
}

// CreatePlatform registers a platform family.
func (s *Store) CreatePlatform(ctx context.Context, p provision.Platform) (provision.Platform, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Second)
	res, err := s.exec(ctx,
		"INSERT INTO platforms (name, created_at) VALUES (?, ?)",
		p.Name, provision.FormatTime(p.CreatedAt),
	)
	if err != nil {
		return provision.Platform{}, fmt.Errorf("create platform %q: %w", p.Name, err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return provision.Platform{}, fmt.Errorf("read platform id: %w", err)
	}
	return p, nil
}

// ListPlatforms returns platforms ordered by name.
func (s *Store) ListPlatforms(ctx context.Context) ([]provision.Platform, error) {
	ctx = ensureContext(ctx)
	var out []provision.Platform
	err := s.retry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM platforms ORDER BY name ASC, id ASC")
		if err != nil {
			return err
		}
		defer rows.Close()
		out = []provision.Platform{}
		for rows.Next() {
			var (
				p         provision.Platform
				createdAt string
			)
			if err := rows.Scan(&p.ID, &p.Name, &createdAt); err != nil {
				return err
			}
			p.CreatedAt, _ = provision.ParseTime(createdAt)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return out, nil
}
