// Package events publishes authentication events to downstream consumers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeUserRegistered = "user_registered"
	TypeUserLoggedIn   = "user_logged_in"
)

// AuthEvent never carries credentials or tokens.
type AuthEvent struct {
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, AuthEvent) error { return nil }
func (Nop) Close() error                             { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev AuthEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
