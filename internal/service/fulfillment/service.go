package fulfillment

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// defaultCourierCode используется, когда заказ оформлен без явного кода курьера.
const defaultCourierCode = "jne"

// Service строит заявки перевозчику и сопровождает отправления.
// Перевозчик — внешний коллаборатор: его ошибки пробрасываются дословно,
// retry на этом уровне не выполняется.
type Service struct {
	carrier   domain.CarrierGateway
	origins   domain.OriginRepository
	addresses domain.AddressRepository
	orders    domain.OrderRepository
	shipments domain.ShippingRepository
	inventory domain.InventoryLedger
	logger    *log.Entry
}

// Deps — зависимости Service.
type Deps struct {
	Carrier   domain.CarrierGateway
	Origins   domain.OriginRepository
	Addresses domain.AddressRepository
	Orders    domain.OrderRepository
	Shipments domain.ShippingRepository
	Inventory domain.InventoryLedger
	Logger    *log.Entry
}

// NewService создаёт сервис фулфилмента.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "fulfillment")
	}
	return &Service{
		carrier:   deps.Carrier,
		origins:   deps.Origins,
		addresses: deps.Addresses,
		orders:    deps.Orders,
		shipments: deps.Shipments,
		inventory: deps.Inventory,
		logger:    logger,
	}
}

// CreateWaybill создаёт накладную у перевозчика для заказа.
// Ключ идемпотентности заявки — ID заказа, поэтому повторный вызов после
// сбоя не плодит дублей на стороне перевозчика.
func (s *Service) CreateWaybill(ctx context.Context, order domain.Order) (domain.Shipping, error) {
	origin, err := s.origins.Active(ctx)
	if err != nil {
		return domain.Shipping{}, err
	}
	address, err := s.addresses.Get(ctx, order.AddressID)
	if err != nil {
		return domain.Shipping{}, err
	}

	courier := order.CourierCode
	if courier == "" {
		courier = defaultCourierCode
	}

	shipper := domain.CarrierContact{
		Name:  origin.Contact,
		Phone: origin.Phone,
		Line:  origin.Line,
		City:  origin.City,
	}
	s.resolveArea(ctx, &shipper, origin.PostalCode)

	destination := domain.CarrierContact{
		Name:  address.Recipient,
		Phone: address.Phone,
		Line:  address.Line,
		City:  address.City,
	}
	s.resolveArea(ctx, &destination, address.PostalCode)

	items := make([]domain.CarrierItem, 0, len(order.Items))
	for _, item := range order.Items {
		carrierItem := domain.CarrierItem{
			Name:       item.Name,
			Qty:        item.Qty,
			ValueMinor: item.PriceMinor,
		}
		if variant, err := s.inventory.GetVariant(ctx, item.VariantID); err == nil {
			carrierItem.WeightGrams = variant.WeightGrams
		}
		items = append(items, carrierItem)
	}

	result, err := s.carrier.CreateOrder(ctx, domain.CarrierOrder{
		Reference:   order.ID,
		CourierCode: courier,
		ServiceCode: order.ServiceCode,
		Shipper:     shipper,
		Origin:      shipper,
		Destination: destination,
		Items:       items,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("carrier order creation failed")
		return domain.Shipping{}, err
	}

	now := time.Now().UTC()
	shipping := domain.Shipping{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Courier:        courier,
		CarrierOrderID: result.CarrierOrderID,
		Status:         domain.ShippingStatusCreated,
		ShippedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Номер накладной записывается только если перевозчик его вернул;
	// внутренний идентификатор заявки номером не подменяется.
	if result.TrackingNumber != "" {
		shipping.TrackingNumber = result.TrackingNumber
	}
	if !result.EstimatedDelivery.IsZero() {
		shipping.EstimatedDelivery = result.EstimatedDelivery
	}

	s.logger.WithFields(log.Fields{
		"order_id":         order.ID,
		"carrier_order_id": result.CarrierOrderID,
		"courier":          courier,
	}).Info("waybill created")
	return shipping, nil
}

// resolveArea подставляет в контакт идентификатор гео-области перевозчика.
// Найденная область вытесняет почтовый индекс; при неудаче поиска индекс
// отправляется как есть.
func (s *Service) resolveArea(ctx context.Context, contact *domain.CarrierContact, postalCode string) {
	areaID, err := s.carrier.ResolveArea(ctx, postalCode)
	if err != nil {
		s.logger.WithError(err).WithField("postal_code", postalCode).Warn("area lookup failed, falling back to postal code")
		contact.PostalCode = postalCode
		return
	}
	if areaID != "" {
		contact.AreaID = areaID
		return
	}
	contact.PostalCode = postalCode
}

// TrackShipment возвращает события трекинга заказа, новые первыми.
func (s *Service) TrackShipment(ctx context.Context, actor domain.Actor, orderID string) ([]domain.TrackingEvent, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, domain.ErrOrderNotFound
	}

	shipping, err := s.shipments.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if shipping.TrackingNumber == "" {
		return []domain.TrackingEvent{}, nil
	}

	events, err := s.carrier.Track(ctx, shipping.TrackingNumber, shipping.Courier)
	if err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Occurred.After(events[j].Occurred)
	})
	return events, nil
}

// SyncTracking подтягивает статус отправления от перевозчика и двигает
// его только вперёд: created → in_transit → delivered.
func (s *Service) SyncTracking(ctx context.Context, orderID string) (domain.Shipping, error) {
	shipping, err := s.shipments.GetByOrder(ctx, orderID)
	if err != nil {
		return domain.Shipping{}, err
	}
	if shipping.TrackingNumber == "" || shipping.Status == domain.ShippingStatusDelivered {
		return shipping, nil
	}

	events, err := s.carrier.Track(ctx, shipping.TrackingNumber, shipping.Courier)
	if err != nil {
		return domain.Shipping{}, err
	}
	if len(events) == 0 {
		return shipping, nil
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Occurred.After(events[j].Occurred)
	})
	latest := events[0]

	next := normalizeCarrierStatus(latest.Status)
	if next == "" || next == shipping.Status {
		return shipping, nil
	}
	if next == domain.ShippingStatusCreated {
		// Назад не откатываемся.
		return shipping, nil
	}

	now := time.Now().UTC()
	shipping.Status = next
	shipping.UpdatedAt = now
	if next == domain.ShippingStatusDelivered {
		shipping.DeliveredAt = latest.Occurred
	}
	if err := s.shipments.Save(ctx, shipping); err != nil {
		return domain.Shipping{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   next,
	}).Info("shipment status advanced")
	return shipping, nil
}

// normalizeCarrierStatus переводит статус из словаря перевозчика в наш.
func normalizeCarrierStatus(raw string) domain.ShippingStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivered", "received":
		return domain.ShippingStatusDelivered
	case "in_transit", "transit", "on_process", "picked_up":
		return domain.ShippingStatusInTransit
	case "created", "confirmed", "allocated":
		return domain.ShippingStatusCreated
	default:
		return ""
	}
}
