// Package repo holds the plumbing shared by the gorm repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories to share connection handling.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection bound to ctx. A nil ctx returns the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// FirstOrNil runs query.First into a fresh T, returning (nil, nil) when no row matches.
func FirstOrNil[T any](query *gorm.DB) (*T, error) {
	var out T
	err := query.First(&out).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &out, nil
}

// Touched reports whether a write statement changed at least one row.
func Touched(res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
