package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/payments"
	"github.com/rastuci/api/internal/repositories"
)

const (
	orderIDPrefix       = "ord_"
	orderNumberSequence = "orders"
	orderNumberTemplate = "RAS-%d-%06d"
)

// Storefront-facing rejection messages.
const (
	checkoutMsgEmptyCart       = "El carrito está vacío"
	checkoutMsgMissingCustomer = "Faltan los datos del cliente"
	checkoutMsgMissingPayment  = "Debe seleccionar un método de pago"
	checkoutMsgInvalidPayment  = "Método de pago inválido"
	checkoutMsgInvalidItems    = "Los artículos del pedido son inválidos"
)

var (
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutPaymentFailed indicates the gateway preference could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders          repositories.OrderRepository
	Coupons         repositories.CouponRepository
	Sequences       repositories.SequenceRepository
	Payments        payments.Provider
	SuccessURL      string
	PendingURL      string
	FailureURL      string
	NotificationURL string
	Clock           func() time.Time
	Logger          func(ctx context.Context, event string, fields map[string]any)
	IDGenerator     func() string
}

type checkoutService struct {
	orders          repositories.OrderRepository
	coupons         repositories.CouponRepository
	sequences       repositories.SequenceRepository
	payments        payments.Provider
	successURL      string
	pendingURL      string
	failureURL      string
	notificationURL string
	now             func() time.Time
	logger          func(ctx context.Context, event string, fields map[string]any)
	newID           func() string
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Sequences == nil {
		return nil, errors.New("checkout service: sequence repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}

	return &checkoutService{
		orders:          deps.Orders,
		coupons:         deps.Coupons,
		sequences:        deps.Sequences,
		payments:        deps.Payments,
		successURL:      strings.TrimSpace(deps.SuccessURL),
		pendingURL:      strings.TrimSpace(deps.PendingURL),
		failureURL:      strings.TrimSpace(deps.FailureURL),
		notificationURL: strings.TrimSpace(deps.NotificationURL),
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		newID:  idGen,
	}, nil
}

// CreateOrder validates the submitted cart, applies the coupon, persists the
// order, and for gateway payments creates the checkout preference.
func (s *checkoutService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CheckoutResult, error) {
	if s == nil || s.orders == nil {
		return CheckoutResult{}, ErrCheckoutUnavailable
	}

	items, err := normalizeCheckoutItems(cmd.Items)
	if err != nil {
		return CheckoutResult{}, err
	}
	customer, err := normalizeCheckoutCustomer(cmd.Customer)
	if err != nil {
		return CheckoutResult{}, err
	}
	method, err := normalizePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return CheckoutResult{}, err
	}

	now := s.now()
	subtotal := int64(0)
	for _, item := range items {
		subtotal += int64(item.Quantity) * item.UnitPrice
	}

	var couponCode *string
	var couponID string
	var discount int64
	if cmd.CouponCode != nil && strings.TrimSpace(*cmd.CouponCode) != "" {
		coupon, amount, err := s.applyCoupon(ctx, *cmd.CouponCode, subtotal, now)
		if err != nil {
			return CheckoutResult{}, err
		}
		code := strings.ToUpper(strings.TrimSpace(coupon.Code))
		couponCode = &code
		couponID = coupon.ID
		discount = amount
	}

	shippingCost := cmd.ShippingCost
	if shippingCost < 0 {
		shippingCost = 0
	}
	total := subtotal + shippingCost - discount
	if total < 0 {
		total = 0
	}
	if cmd.DeclaredTotal > 0 && cmd.DeclaredTotal != total {
		s.logger(ctx, "checkout.total.mismatch", map[string]any{
			"declared": cmd.DeclaredTotal,
			"computed": total,
		})
	}

	orderNumber, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: order number: %w", err)
	}

	order := domain.Order{
		ID:             s.newID(),
		OrderNumber:    orderNumber,
		Status:         domain.OrderStatusPending,
		Total:          total,
		ShippingCost:   shippingCost,
		Discount:       discount,
		CouponCode:     couponCode,
		Customer:       customer,
		Shipping:       normalizeShippingAddress(cmd.Shipping),
		ShippingMethod: domain.ShippingMethod(strings.ToLower(strings.TrimSpace(cmd.ShippingMethod))),
		ShippingAgency: trimStringPtr(cmd.ShippingAgency),
		PaymentMethod:  method,
		Items:          items,
		Metadata:       cmd.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		order.Notes = &notes
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: persist order %s: %w", order.ID, err)
	}
	s.logger(ctx, "checkout.order.created", map[string]any{
		"orderId":       order.ID,
		"orderNumber":   order.OrderNumber,
		"paymentMethod": string(order.PaymentMethod),
		"total":         order.Total,
	})

	if couponID != "" && s.coupons != nil {
		if _, err := s.coupons.IncrementUsage(ctx, couponID, now); err != nil {
			s.logger(ctx, "checkout.coupon.usage_failed", map[string]any{
				"orderId": order.ID,
				"coupon":  *couponCode,
				"error":   err.Error(),
			})
		}
	}

	if method != domain.PaymentMethodMercadoPago {
		return CheckoutResult{Order: order}, nil
	}
	return s.createGatewayPreference(ctx, order)
}

func (s *checkoutService) createGatewayPreference(ctx context.Context, order domain.Order) (CheckoutResult, error) {
	lines := make([]payments.PreferenceLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payments.PreferenceLineItem{
			ID:         item.ProductID,
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitAmount: item.UnitPrice,
		})
	}
	if order.ShippingCost > 0 {
		lines = append(lines, payments.PreferenceLineItem{
			ID:         "shipping",
			Title:      "Costo de envío",
			Quantity:   1,
			UnitAmount: order.ShippingCost,
		})
	}
	if order.Discount > 0 {
		lines = foldDiscount(lines, order.Discount)
	}

	pref, err := s.payments.CreatePreference(ctx, payments.PreferenceRequest{
		OrderID:         order.ID,
		PayerEmail:      order.Customer.Email,
		PayerName:       order.Customer.Name,
		SuccessURL:      s.successURL,
		PendingURL:      s.pendingURL,
		FailureURL:      s.failureURL,
		NotificationURL: s.notificationURL,
		Items:           lines,
	})
	if err != nil {
		s.logger(ctx, "checkout.preference.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
	}

	preferenceID := pref.ID
	order.Payment.PreferenceID = &preferenceID
	if domain.CanTransition(order.Status, domain.OrderStatusPendingPayment) {
		order.Status = domain.OrderStatusPendingPayment
	}
	order.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger(ctx, "checkout.preference.persist_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}

	return CheckoutResult{
		Order:       order,
		RedirectURL: pref.RedirectURL,
		SandboxURL:  pref.SandboxURL,
	}, nil
}

// foldDiscount subtracts the coupon discount from the gateway lines so the
// charge matches the persisted order total exactly. The gateway rejects
// negative and zero amounts, so a discounted line is collapsed to a single
// unit carrying its reduced total and lines consumed entirely are dropped.
func foldDiscount(lines []payments.PreferenceLineItem, discount int64) []payments.PreferenceLineItem {
	remaining := discount
	folded := lines[:0]
	for _, line := range lines {
		lineTotal := int64(line.Quantity) * line.UnitAmount
		if remaining > 0 && lineTotal > 0 {
			take := remaining
			if take > lineTotal {
				take = lineTotal
			}
			remaining -= take
			lineTotal -= take
			if lineTotal == 0 {
				continue
			}
			line.Quantity = 1
			line.UnitAmount = lineTotal
		}
		folded = append(folded, line)
	}
	return folded
}

func (s *checkoutService) applyCoupon(ctx context.Context, code string, subtotal int64, now time.Time) (domain.Coupon, int64, error) {
	if s.coupons == nil {
		return domain.Coupon{}, 0, ErrCheckoutUnavailable
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			return domain.Coupon{}, 0, NewValidationError("coupon_rejected", couponReasonNotFound)
		}
		return domain.Coupon{}, 0, fmt.Errorf("checkout: coupon %s: %w", normalized, err)
	}
	result := EvaluateCoupon(coupon, subtotal, now)
	if !result.Eligible {
		return domain.Coupon{}, 0, NewValidationError("coupon_rejected", result.Reason)
	}
	return coupon, result.DiscountAmount, nil
}

func (s *checkoutService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.sequences.Next(ctx, orderNumberSequence, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(orderNumberTemplate, now.Year(), seq), nil
}

func normalizeCheckoutItems(items []CheckoutItem) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, NewValidationError("empty_cart", checkoutMsgEmptyCart)
	}
	normalized := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
			return nil, NewValidationError("invalid_items", checkoutMsgInvalidItems)
		}
		line := domain.OrderItem{
			ProductID: productID,
			VariantID: trimStringPtr(item.VariantID),
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if size := strings.TrimSpace(item.Size); size != "" {
			line.Size = &size
		}
		if color := strings.TrimSpace(item.Color); color != "" {
			line.Color = &color
		}
		normalized = append(normalized, line)
	}
	return normalized, nil
}

func normalizeCheckoutCustomer(customer Customer) (domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.City = strings.TrimSpace(customer.City)
	customer.Province = strings.TrimSpace(customer.Province)
	customer.PostalCode = strings.TrimSpace(customer.PostalCode)
	if customer.Name == "" || customer.Email == "" {
		return domain.Customer{}, NewValidationError("missing_customer", checkoutMsgMissingCustomer)
	}
	return customer, nil
}

func normalizePaymentMethod(raw string) (domain.PaymentMethod, error) {
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case "":
		return "", NewValidationError("missing_payment_method", checkoutMsgMissingPayment)
	case domain.PaymentMethodMercadoPago, domain.PaymentMethodBankTransfer, domain.PaymentMethodCash:
		return method, nil
	default:
		return "", NewValidationError("invalid_payment_method", checkoutMsgInvalidPayment)
	}
}

func normalizeShippingAddress(addr ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:       strings.TrimSpace(addr.Street),
		Number:       strings.TrimSpace(addr.Number),
		Floor:        strings.TrimSpace(addr.Floor),
		Apartment:    strings.TrimSpace(addr.Apartment),
		City:         strings.TrimSpace(addr.City),
		Province:     strings.TrimSpace(addr.Province),
		ProvinceCode: strings.TrimSpace(addr.ProvinceCode),
		PostalCode:   strings.TrimSpace(addr.PostalCode),
	}
}

func trimStringPtr(in *string) *string {
	if in == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*in)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
