package domain

import "time"

// ProductVariant — учётная единица каталога со своим счётчиком стока.
// Инвариант: stock >= 0 всегда; сток мутируется только операциями
// инвентарного регистра (Reserve/Release).
type ProductVariant struct {
	ID        string
	ProductID string
	SKU       string
	Name      string
	// PriceMinor и BasePriceMinor снапшотятся в OrderItem на checkout.
	PriceMinor     int64
	BasePriceMinor int64
	Currency       string
	Stock          int32
	// WeightGrams используется при построении накладной (дефолт, если 0).
	WeightGrams int32
	// ProductDeleted — soft-delete родительского товара; такие варианты
	// исключаются из checkout.
	ProductDeleted bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CartItem — строка корзины, потребляемая (удаляемая) при оформлении заказа.
type CartItem struct {
	ID        string
	UserID    string
	VariantID string
	Qty       int32
	CreatedAt time.Time
}

// Address — адрес доставки; принадлежность проверяется на checkout.
type Address struct {
	ID         string
	UserID     string
	Recipient  string
	Phone      string
	Line       string
	City       string
	Province   string
	PostalCode string
	CreatedAt  time.Time
}

// Origin — точка отгрузки продавца. Активной может быть только одна;
// без активной точки создание накладной невозможно.
type Origin struct {
	ID         string
	Name       string
	Contact    string
	Phone      string
	Line       string
	City       string
	PostalCode string
	Active     bool
	CreatedAt  time.Time
}
