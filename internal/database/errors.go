package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrUnavailable means no store credential is configured.
	ErrUnavailable = errors.New("store is not configured")
	// ErrPermissionDenied is returned when row-level security rejects a call.
	ErrPermissionDenied = errors.New("permission denied")
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindUnavailable
	KindOther
)

const (
	sqlStateInsufficientPrivilege = "42501"
	sqlStateUniqueViolation       = "23505"
)

// Classify sorts a backend error into the categories callers branch on.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	if errors.Is(err, ErrPermissionDenied) {
		return KindPermissionDenied
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return KindConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateInsufficientPrivilege:
			return KindPermissionDenied
		case sqlStateUniqueViolation:
			return KindConflict
		}
		return KindOther
	}

	// sqlite reports constraint failures only through the message.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return KindConflict
	}
	return KindOther
}

func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

func IsPermissionDenied(err error) bool {
	return Classify(err) == KindPermissionDenied
}

func IsConflict(err error) bool {
	return Classify(err) == KindConflict
}
