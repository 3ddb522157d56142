package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario. Dato maestro: solo lectura para el núcleo.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
