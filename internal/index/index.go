package index

import (
	"github.com/starford/agx/internal/ident"
	"github.com/starford/agx/internal/models"
)

// Catalog defines the catalog operations used by the service layer.
// Consumers depend on this interface rather than on *DB.
type Catalog interface {
	UpsertProposal(p Row, body string, links []models.Link) error
	DeleteProposal(path string) error
	GetChecksum(path string) (string, error)
	ListProposals(limit, offset int, author, sort string) ([]Row, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []models.Link, error)
	Referrers(target ident.ID) ([]models.Link, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
