package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
	"github.com/kittilsenstian-debug/online-store-engine/internal/vipps"
	"go.uber.org/zap"
)

// cartRefLen limita el cart id dentro de la referencia de la ruta initiate.
const cartRefLen = 50

// InitiateRequest: Amount en unidades menores.
type InitiateRequest struct {
	CartID   string
	Amount   int64
	Currency string
}

// InitiateResult es lo que el storefront necesita para redirigir a Vipps.
type InitiateResult struct {
	PaymentID string
	URL       string
	Status    string
}

// CheckoutService abre pagos de Vipps para un cart.
type CheckoutService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
}

type checkoutService struct {
	provider   Provider
	carts      repository.CartRepository
	customers  repository.CustomerRepository
	sessions   repository.PaymentSessionRepository
	backendURL string
}

// NewCheckoutService crea un CheckoutService.
func NewCheckoutService(d Deps) CheckoutService {
	return &checkoutService{
		provider:   d.Provider,
		carts:      d.Carts,
		customers:  d.Customers,
		sessions:   d.Sessions,
		backendURL: strings.TrimRight(d.BackendURL, "/"),
	}
}

func (s *checkoutService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("payments.checkout"),
		logger.Op("Initiate"),
		logger.CartID(req.CartID),
	)

	if strings.TrimSpace(req.CartID) == "" || req.Amount <= 0 || strings.TrimSpace(req.Currency) == "" {
		return nil, ErrMissingFields
	}
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}

	cart, err := s.carts.GetByID(ctx, req.CartID)
	if repository.IsNotFound(err) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	gw, err := s.provider.Gateway()
	if err != nil {
		return nil, err
	}

	ref := req.CartID
	if len(ref) > cartRefLen {
		ref = ref[:cartRefLen]
	}
	in := vipps.CreatePaymentRequest{
		Amount:      vipps.FromMinorUnits(req.Amount),
		Currency:    strings.ToUpper(req.Currency),
		Reference:   "CART-" + ref,
		Description: description(cart.ItemCount),
		ReturnURL:   s.provider.ReturnURL(req.CartID),
		CallbackURL: s.backendURL + "/store/payments/vipps/callback",
	}
	if cart.CustomerID != "" {
		// Sin customer se sigue sin datos de contacto.
		if c, err := s.customers.GetByID(ctx, cart.CustomerID); err == nil {
			in.Email, in.PhoneNumber = c.Email, c.Phone
		} else {
			log.Debug("cart customer not found", logger.CustomerID(cart.CustomerID), logger.Err(err))
		}
	}

	res, err := gw.CreatePayment(ctx, in)
	if err != nil {
		log.Error("vipps payment creation failed", logger.Reference(in.Reference), logger.Err(err))
		return nil, err
	}
	log.Info("vipps payment created", logger.PaymentID(res.PaymentID), logger.Reference(in.Reference))

	s.recordSession(ctx, log, cart, req, res, in.Reference)

	return &InitiateResult{PaymentID: res.PaymentID, URL: res.URL, Status: res.Status}, nil
}

// recordSession deja la sesión "vipps" en la payment collection del cart para
// que callback y webhook la encuentren. Las fallas solo se loguean.
func (s *checkoutService) recordSession(ctx context.Context, log *zap.Logger, cart *repository.Cart, req InitiateRequest, res *vipps.CreatePaymentResponse, reference string) {
	if s.sessions == nil {
		return
	}
	colID, err := s.carts.EnsurePaymentCollection(ctx, cart.ID, strings.ToLower(req.Currency), req.Amount)
	if err != nil {
		log.Warn("payment collection not ensured", logger.Err(err))
		return
	}
	ps, err := s.sessions.Upsert(ctx, repository.UpsertPaymentSessionInput{
		PaymentCollectionID: colID,
		ProviderID:          payment.ProviderAlias,
		Status:              string(payment.MapVippsState(res.Status)),
		Amount:              req.Amount,
		CurrencyCode:        req.Currency,
		Data: map[string]any{
			payment.KeyPaymentID: res.PaymentID,
			payment.KeyReference: reference,
			payment.KeyURL:       res.URL,
		},
	})
	if err != nil {
		log.Warn("payment session not recorded", logger.Err(err))
		return
	}
	log.Debug("payment session recorded", logger.SessionID(ps.ID))
}

func description(items int) string {
	switch {
	case items == 1:
		return "Order for 1 item"
	case items > 1:
		return fmt.Sprintf("Order for %d items", items)
	default:
		return "Order payment"
	}
}
