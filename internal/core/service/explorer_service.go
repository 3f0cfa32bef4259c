package service

import (
	"context"
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// ExplorerService wraps SchemaExplorer and rejects blank table names before
// they reach the engine.
type ExplorerService struct {
	explorer port.SchemaExplorer
}

func NewExplorerService(explorer port.SchemaExplorer) *ExplorerService {
	return &ExplorerService{
		explorer: explorer,
	}
}

func (s *ExplorerService) ListTables(ctx context.Context) ([]string, error) {
	return s.explorer.ListTables(ctx)
}

func (s *ExplorerService) ListTableInfo(ctx context.Context) ([]port.TableInfo, error) {
	return s.explorer.ListTableInfo(ctx)
}

func (s *ExplorerService) GetTableInfo(ctx context.Context, table string) (*port.TableDescriptor, error) {
	if strings.TrimSpace(table) == "" {
		return nil, port.NewDiagnostic(port.KindValidation, "table name is required")
	}
	return s.explorer.GetTableInfo(ctx, table)
}
