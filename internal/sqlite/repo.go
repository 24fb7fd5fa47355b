package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/engineroomai/scout/internal/scout"
)

// Ensure Repo implements the Repository interface
var _ scout.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
