package cart

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
)

// ItemMetadata describes one uploaded file. The i-th entry belongs to the i-th file.
type ItemMetadata struct {
	Name     string `json:"name" validate:"required,max=255"`
	FileType string `json:"fileType" validate:"required,max=32"`
	Coloured bool   `json:"coloured"`
	Duplex   bool   `json:"duplex"`
	Spiral   bool   `json:"spiral"`
	Hardbind bool   `json:"hardbind"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=500"`
	Price    int64  `json:"price" validate:"min=0"`
}

// UploadFile is a single multipart part handed to the service.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddItemsInput pairs files with their metadata.
type AddItemsInput struct {
	Files    []UploadFile
	Metadata []ItemMetadata
}

type CartItemDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FileURL   string    `json:"fileUrl"`
	FileType  string    `json:"fileType"`
	Coloured  bool      `json:"coloured"`
	Duplex    bool      `json:"duplex"`
	Spiral    bool      `json:"spiral"`
	Hardbind  bool      `json:"hardbind"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartDTO is the cart as the student sees it. Subtotal excludes every fee.
type CartDTO struct {
	ID       uuid.UUID     `json:"id"`
	Items    []CartItemDTO `json:"items"`
	Subtotal int64         `json:"subtotal"`
}

func ItemFromModel(item models.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		FileURL:   item.FileURL,
		FileType:  item.FileType,
		Coloured:  item.Coloured,
		Duplex:    item.Duplex,
		Spiral:    item.Spiral,
		Hardbind:  item.Hardbind,
		Quantity:  item.Quantity,
		Price:     item.Price,
		CreatedAt: item.CreatedAt,
	}
}

func FromModel(cart *models.Cart) *CartDTO {
	dto := &CartDTO{ID: cart.ID, Items: make([]CartItemDTO, 0, len(cart.Items))}
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, ItemFromModel(item))
		dto.Subtotal += item.Price
	}
	return dto
}
