package shelves

import (
	"strings"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

type createShelfRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"max=120"`
	Rows     int    `json:"rows" validate:"gte=1,lte=50"`
}

type updateShelfRequest struct {
	Name     string `json:"name" validate:"max=120"`
	Location string `json:"location" validate:"max=120"`
	Rows     int    `json:"rows" validate:"gte=1,lte=50"`
}

type assignRequest struct {
	ProductCode string `json:"product_code" validate:"required,max=64"`
	RowNumber   int    `json:"row_number" validate:"gte=1"`
}

// moveRequest accepts either a pointer drop or a keyboard step.
type moveRequest struct {
	ActiveID    string `json:"active_id" validate:"required_without=ProductCode"`
	OverID      string `json:"over_id"`
	ProductCode string `json:"product_code" validate:"required_without=ActiveID"`
	Direction   string `json:"direction" validate:"omitempty,oneof=up down"`
}

func (m moveRequest) resolver() layout.DragResolver {
	if strings.TrimSpace(m.ProductCode) != "" {
		return layout.KeyboardStep{ProductCode: strings.TrimSpace(m.ProductCode), Direction: layout.Direction(m.Direction)}
	}
	return layout.PointerDrop{ActiveID: m.ActiveID, OverID: m.OverID}
}

type listResponse struct {
	Items      []Shelf           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

type cancelResponse struct {
	SessionID string        `json:"session_id"`
	Original  layout.Layout `json:"original"`
}
