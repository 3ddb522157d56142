package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// WarehouseLocker serializa las ediciones de una orden con las operaciones del motor sobre su bodega.
type WarehouseLocker interface {
	Exclusive(ctx context.Context, warehouseID string, fn func() error) error
}

// OrderUseCase alta y edición de órdenes de compra/venta. Nunca toca stock ni el libro:
// los estados terminales solo se alcanzan recibiendo o despachando.
type OrderUseCase struct {
	repo          repository.OrderRepository
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
	locker        WarehouseLocker
	nowFn         func() time.Time
}

// NewOrderUseCase construye el caso de uso.
func NewOrderUseCase(
	repo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	locker WarehouseLocker,
) *OrderUseCase {
	return &OrderUseCase{
		repo:          repo,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
		locker:        locker,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// Create crea la orden en su estado inicial (CREATED o NEW), sin líneas.
func (uc *OrderUseCase) Create(ctx context.Context, in dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if !entity.ValidKind(in.Kind) {
		return nil, fmt.Errorf("%w: tipo de orden %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.CounterpartyID == "" || in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: counterparty_id y warehouse_id requeridos", domain.ErrInvalidInput)
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, in.WarehouseID)
	}
	now := uc.nowFn()
	orderDate := now
	if in.OrderDate != nil {
		orderDate = in.OrderDate.UTC()
	}
	order := &entity.Order{
		ID:             uuid.New().String(),
		Kind:           in.Kind,
		CounterpartyID: in.CounterpartyID,
		WarehouseID:    in.WarehouseID,
		OrderDate:      orderDate,
		Status:         entity.InitialStatus(in.Kind),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// GetByID obtiene la orden con sus líneas y el total derivado.
func (uc *OrderUseCase) GetByID(ctx context.Context, id string) (*dto.OrderResponse, error) {
	order, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// List lista órdenes filtrando por tipo y estado.
func (uc *OrderUseCase) List(ctx context.Context, kind, status string, page dto.PageRequest) (*dto.OrderListResponse, error) {
	page.DefaultPage()
	if kind != "" && !entity.ValidKind(kind) {
		return nil, fmt.Errorf("%w: tipo de orden %q", domain.ErrInvalidInput, kind)
	}
	list, err := uc.repo.List(ctx, repository.OrderFilter{Kind: kind, Status: status, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, *toOrderResponse(o))
	}
	return &dto.OrderListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// AddLine agrega una línea. En compras el precio se fija desde el catálogo (el del caller se ignora);
// en ventas se toma del catálogo salvo que el caller lo indique.
func (uc *OrderUseCase) AddLine(ctx context.Context, orderID string, in dto.AddOrderLineRequest) (*dto.OrderResponse, error) {
	if in.ItemID == "" || in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: item_id y cantidad positiva requeridos", domain.ErrInvalidInput)
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
	}
	item, err := uc.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, in.ItemID)
	}
	return uc.edit(ctx, orderID, "add_line", func(order *entity.Order) error {
		price := item.UnitPrice
		if order.Kind == entity.OrderKindSales && in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		line := &entity.OrderLine{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ItemID:    item.ID,
			Quantity:  in.Quantity,
			UnitPrice: price.Round(2),
		}
		if err := uc.repo.AddLine(ctx, line); err != nil {
			return err
		}
		order.Lines = append(order.Lines, *line)
		return nil
	})
}

// UpdateLine cambia cantidad y/o precio. El precio de una línea de compra es inmutable.
func (uc *OrderUseCase) UpdateLine(ctx context.Context, orderID, lineID string, in dto.UpdateOrderLineRequest) (*dto.OrderResponse, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
	}
	return uc.edit(ctx, orderID, "update_line", func(order *entity.Order) error {
		line, ok := order.Line(lineID)
		if !ok {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
		}
		if in.UnitPrice != nil {
			if order.Kind == entity.OrderKindPurchase {
				return fmt.Errorf("%w: el precio de una línea de compra no se puede modificar", domain.ErrInvalidInput)
			}
			line.UnitPrice = in.UnitPrice.Round(2)
		}
		if in.Quantity != nil {
			line.Quantity = *in.Quantity
		}
		return uc.repo.UpdateLine(ctx, line)
	})
}

// RemoveLine elimina una línea de una orden aún no terminada.
func (uc *OrderUseCase) RemoveLine(ctx context.Context, orderID, lineID string) (*dto.OrderResponse, error) {
	return uc.edit(ctx, orderID, "remove_line", func(order *entity.Order) error {
		if _, ok := order.Line(lineID); !ok {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
		}
		if err := uc.repo.DeleteLine(ctx, order.ID, lineID); err != nil {
			return err
		}
		kept := order.Lines[:0]
		for _, l := range order.Lines {
			if l.ID != lineID {
				kept = append(kept, l)
			}
		}
		order.Lines = kept
		return nil
	})
}

// AdvanceStatus transición manual hacia adelante entre estados no terminales
// (CREATED→APPROVED→PARTIAL, NEW→CONFIRMED).
func (uc *OrderUseCase) AdvanceStatus(ctx context.Context, orderID string, in dto.AdvanceStatusRequest) (*dto.OrderResponse, error) {
	return uc.edit(ctx, orderID, "advance_status", func(order *entity.Order) error {
		if in.Status == entity.TerminalStatus(order.Kind) {
			return fmt.Errorf("%w: el estado %s solo se alcanza recibiendo o despachando", domain.ErrInvalidInput, in.Status)
		}
		if !entity.CanTransition(order.Kind, order.Status, in.Status) {
			return &domain.InvalidOrderStateError{OrderID: order.ID, Status: order.Status, Action: "advance to " + in.Status}
		}
		if err := uc.repo.UpdateStatus(ctx, order.ID, order.Status, in.Status); err != nil {
			return err
		}
		order.Status = in.Status
		return nil
	})
}

func (uc *OrderUseCase) load(ctx context.Context, id string) (*entity.Order, error) {
	order, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// edit relee la orden bajo el lock de su bodega y rechaza cambios sobre órdenes terminadas.
func (uc *OrderUseCase) edit(ctx context.Context, orderID, action string, fn func(order *entity.Order) error) (*dto.OrderResponse, error) {
	order, err := uc.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	err = uc.locker.Exclusive(ctx, order.WarehouseID, func() error {
		current, err := uc.load(ctx, orderID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return &domain.InvalidOrderStateError{OrderID: current.ID, Status: current.Status, Action: action}
		}
		order = current
		return fn(order)
	})
	if err != nil {
		return nil, err
	}
	order.UpdatedAt = uc.nowFn()
	return toOrderResponse(order), nil
}

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	lines := make([]dto.OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, dto.OrderLineResponse{
			ID:        l.ID,
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal().Round(2),
		})
	}
	return &dto.OrderResponse{
		ID:             o.ID,
		Kind:           o.Kind,
		CounterpartyID: o.CounterpartyID,
		WarehouseID:    o.WarehouseID,
		OrderDate:      o.OrderDate,
		Status:         o.Status,
		Lines:          lines,
		Total:          o.Total(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
