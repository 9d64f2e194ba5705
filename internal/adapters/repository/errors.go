package repository

import (
	"errors"

	"github.com/okian/epochboard/internal/domain/epoch"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = epoch.ErrNotFound
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrDuplicate    = errors.New("leaderboard already exists")
)
