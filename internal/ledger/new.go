package ledger

import (
	"context"
	"fmt"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
)

// New opens the ledger selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Ledger, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverFile:
		return NewFile(cfg.DataDir)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
