// Package mapping persists mapping rows and listener settings in SQLite.
package mapping

import (
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/bind"
)

// ErrNotFound is returned when no row matches an ID or position.
var ErrNotFound = errors.New("mapping not found")

// Row is a stored mapping.
type Row struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Datapath  string    `json:"datapath"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Mapping converts r for use by a bind.System.
func (r Row) Mapping() bind.Mapping {
	return bind.Mapping{Name: r.Name, Address: r.Address, Datapath: r.Datapath, Enabled: r.Enabled}
}

// AddParams holds parameters for adding a mapping. An empty Name becomes
// "Mapping N", N being the new row count.
type AddParams struct {
	Name     string
	Address  string
	Datapath string
	Disabled bool
}

// UpdateParams holds the fields to change on a mapping. Nil fields are kept.
type UpdateParams struct {
	Name     *string
	Address  *string
	Datapath *string
}

// Settings are the persisted listener settings.
type Settings struct {
	Host string
	Port int
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{Host: bind.DefaultHost, Port: bind.DefaultPort}
}
