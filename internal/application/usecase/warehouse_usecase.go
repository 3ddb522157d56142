package usecase

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// CatalogUseCase consulta de datos maestros (bodegas e ítems). Solo lectura: el alta y edición
// del catálogo pertenecen a otro sistema.
type CatalogUseCase struct {
	warehouseRepo repository.WarehouseRepository
	itemRepo      repository.ItemRepository
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(warehouseRepo repository.WarehouseRepository, itemRepo repository.ItemRepository) *CatalogUseCase {
	return &CatalogUseCase{warehouseRepo: warehouseRepo, itemRepo: itemRepo}
}

// GetWarehouse obtiene una bodega por ID.
func (uc *CatalogUseCase) GetWarehouse(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := uc.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	return toWarehouseResponse(w), nil
}

// ListWarehouses lista todas las bodegas.
func (uc *CatalogUseCase) ListWarehouses(ctx context.Context) (*dto.WarehouseListResponse, error) {
	list, err := uc.warehouseRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{Items: items}, nil
}

// GetItem obtiene un ítem por ID.
func (uc *CatalogUseCase) GetItem(ctx context.Context, id string) (*dto.ItemResponse, error) {
	it, err := uc.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, domain.ErrNotFound
	}
	return toItemResponse(it), nil
}

// ListItems lista el catálogo de ítems.
func (uc *CatalogUseCase) ListItems(ctx context.Context) (*dto.ItemListResponse, error) {
	list, err := uc.itemRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *toItemResponse(it))
	}
	return &dto.ItemListResponse{Items: items}, nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toItemResponse(it *entity.Item) *dto.ItemResponse {
	return &dto.ItemResponse{
		ID:            it.ID,
		Name:          it.Name,
		UnitOfMeasure: it.UnitOfMeasure,
		UnitPrice:     it.UnitPrice,
		ReorderLevel:  it.ReorderLevel,
	}
}
