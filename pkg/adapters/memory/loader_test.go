package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	loader := memory.NewLoader(domain.Hotel{}, []domain.CatalogItem{
		{ID: "HAB_A", Name: "Suite A", Category: domain.CategoryRooms},
		{ID: "SERV_B", Name: "Transfer", Category: domain.CategoryServices},
	}, nil)

	ports.RunCatalogLoaderContract(t, loader, []string{"HAB_A", "SERV_B"})
}

func TestInMemoryLoader_InvalidCatalog(t *testing.T) {
	loader := memory.NewLoader(domain.Hotel{}, []domain.CatalogItem{{ID: "X"}}, nil)

	_, err := loader.Load(context.Background())
	var verr *domain.CatalogValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Problems)
}
