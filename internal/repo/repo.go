package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop-auth/internal/hash"
)

const uniqueViolation = "23505"

var (
	ErrNotFound          = errors.New("user not found")
	ErrUserAlreadyExist  = errors.New("user already exist")
	ErrInvalidCredential = errors.New("invalid credentials")
)

type GormRepo struct {
	DB     *gorm.DB
	Hasher *hash.Hasher
}

// isUniqueViolation recognizes a uniqueness constraint failure from any of the
// supported drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return true
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
