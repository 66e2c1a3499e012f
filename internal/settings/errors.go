package settings

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("settings row not found")
	ErrAlreadyExists = errors.New("settings row already exists")
)

// ErrorKind buckets backend failures for logging. Every kind resolves to the
// same fallback on the read path.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindNotFound
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unexpected"
	}
}

// Classify reports whether err is an expected miss, a network/offline style
// failure, or something unexpected.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnexpected
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return KindNetwork
	}
	if pgconn.Timeout(err) {
		return KindNetwork
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exception, 57P0x server shutting down / not accepting.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P") {
			return KindNetwork
		}
	}
	return KindUnexpected
}
