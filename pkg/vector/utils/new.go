package vectorutils

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/emunet/pkg/vector"
	"github.com/papercomputeco/emunet/pkg/vector/chromem"
	"github.com/papercomputeco/emunet/pkg/vector/qdrant"
	"github.com/papercomputeco/emunet/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	Qdrant  = "qdrant"
	Chromem = "chromem"
	SQLite  = "sqlite"
)

// SupportedProviders returns the vector store providers NewVectorDriver accepts.
func SupportedProviders() []string {
	return []string{Qdrant, Chromem, SQLite}
}

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is "host:port" for qdrant and a filesystem path for chromem and
	// sqlite. An empty target selects the provider default: localhost:6334
	// for qdrant and a location under DataDir for the embedded stores.
	Target string

	// DataDir is the emunet dot directory used for default file locations.
	DataDir string

	APIKey string
	Logger *slog.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case Qdrant:
		return qdrant.NewDriver(qdrant.Config{
			Target: o.Target,
			APIKey: o.APIKey,
		}, o.Logger)
	case Chromem:
		return chromem.NewDriver(chromem.Config{
			Path: ChromemPath(o.Target, o.DataDir),
		}, o.Logger)
	case SQLite:
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath: SQLitePath(o.Target, o.DataDir),
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %q (available: %s)", o.ProviderType, strings.Join(SupportedProviders(), ", "))
	}
}

// SQLitePath resolves the sqlite database location: the explicit target
// when set, otherwise vectors.db inside dataDir, otherwise in memory.
func SQLitePath(target, dataDir string) string {
	switch {
	case target != "":
		return target
	case dataDir != "":
		return filepath.Join(dataDir, "vectors.db")
	default:
		return ":memory:"
	}
}

// ChromemPath resolves the chromem persistence directory. An empty result
// keeps the database in memory.
func ChromemPath(target, dataDir string) string {
	switch {
	case target != "":
		return target
	case dataDir != "":
		return filepath.Join(dataDir, "chromem")
	default:
		return ""
	}
}
