package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type userStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	cost    int

	dummyOnce sync.Once
	dummyHash []byte
}

func newUserStore(db *sql.DB, d dialect, now func() time.Time) *userStore {
	return &userStore{
		db:      db,
		dialect: d,
		now:     now,
		cost:    bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// register creates a user with a bcrypt hash of password and returns its id.
func (s *userStore) register(ctx context.Context, email, password string) (int64, error) {
	email = normalizeEmail(email)

	v := newValidator()
	v.checkCond(email != "" && password != "", "credentials", "email and password are required")
	v.checkCond(utf8.RuneCountInString(password) >= minPasswordLength, "password", "password must be at least 6 characters")
	if v.hasErrors() {
		return 0, v.toError()
	}

	existing, err := s.getByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, errUserExists
	}

	hash, err := bcrypt.GenerateFromPassword(passwordDigest(password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	u := &user{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    fromMillis(toMillis(s.now())),
	}
	if err := s.insert(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return 0, errUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

// authenticate returns the id of the user owning email when password matches.
// Unknown emails and wrong passwords fail the same way.
func (s *userStore) authenticate(ctx context.Context, email, password string) (int64, error) {
	u, err := s.getByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return 0, err
	}

	hash := s.fallbackHash()
	if u != nil {
		hash = u.PasswordHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, passwordDigest(password)); err != nil || u == nil {
		return 0, errInvalidCredentials
	}
	return u.ID, nil
}

// passwordDigest is what bcrypt sees instead of the raw password. bcrypt reads at
// most 72 bytes, the digest is 44, so every byte of a long password counts.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	digest := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(digest, sum[:])
	return digest
}

// fallbackHash is compared against when the email is unknown so both failure
// paths pay for one bcrypt comparison.
func (s *userStore) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword(passwordDigest("task-tracker-unknown-user"), s.cost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *userStore) getByEmail(ctx context.Context, email string) (*user, error) {
	query := `SELECT id, email, password_hash, created_at
			  FROM users
			  WHERE email = ?`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u user
	var createdAt int64
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(query), email)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, fmt.Errorf("get user by email: %w", err)
		}
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (s *userStore) insert(ctx context.Context, u *user) error {
	query := `INSERT INTO users (email, password_hash, created_at)
			  VALUES (?, ?, ?)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.dialect.rebind(query), u.Email, u.PasswordHash, toMillis(u.CreatedAt))
	return row.Scan(&u.ID)
}
