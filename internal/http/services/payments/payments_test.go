package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment/mock"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store/memory"
	"github.com/kittilsenstian-debug/online-store-engine/internal/vipps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testOpts = payment.Options{
	ClientID:        "id",
	ClientSecret:    "secret",
	SubscriptionKey: "sub",
	BackendURL:      "http://api.test",
	StorefrontURL:   "http://shop.test",
}

type fixture struct {
	store *memory.Store
	gw    *mock.MockGateway
	svc   Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := mock.NewMockGateway(gomock.NewController(t))
	st := memory.New()
	return &fixture{
		store: st,
		gw:    gw,
		svc: NewServices(Deps{
			Provider:   payment.NewProviderWithGateway(testOpts, gw),
			Carts:      st.Carts(),
			Customers:  st.Customers(),
			Sessions:   st.PaymentSessions(),
			BackendURL: "http://api.test/",
		}),
	}
}

func vippsPayment(ref, state string) *vipps.Payment {
	return &vipps.Payment{
		Reference: ref,
		State:     state,
		Amount:    vipps.Amount{Currency: "NOK", Value: 10000},
		Aggregate: vipps.Aggregate{AuthorizedAmount: vipps.Amount{Currency: "NOK", Value: 10000}},
		Raw:       []byte(`{"reference":"` + ref + `","state":"` + state + `"}`),
	}
}

func TestInitiate_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutCart(repository.Cart{ID: "cart_1", CustomerID: "cus_1", ItemCount: 2})
	f.store.PutCustomer(repository.Customer{ID: "cus_1", Email: "kari@example.com", Phone: "4712345678"})

	f.gw.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in vipps.CreatePaymentRequest) (*vipps.CreatePaymentResponse, error) {
			assert.Equal(t, 100.00, in.Amount)
			assert.Equal(t, "NOK", in.Currency)
			assert.Equal(t, "CART-cart_1", in.Reference)
			assert.Equal(t, "Order for 2 items", in.Description)
			assert.Equal(t, "kari@example.com", in.Email)
			assert.Equal(t, "4712345678", in.PhoneNumber)
			assert.Equal(t, "http://shop.test/checkout?payment_success=true&cart_id=cart_1", in.ReturnURL)
			assert.Equal(t, "http://api.test/store/payments/vipps/callback", in.CallbackURL)
			return &vipps.CreatePaymentResponse{PaymentID: "CART-cart_1", URL: "https://vipps.test/pay", Status: "CREATED"}, nil
		})

	res, err := f.svc.Checkout.Initiate(ctx, InitiateRequest{CartID: "cart_1", Amount: 10000, Currency: "nok"})
	require.NoError(t, err)
	assert.Equal(t, &InitiateResult{PaymentID: "CART-cart_1", URL: "https://vipps.test/pay", Status: "CREATED"}, res)

	cart, err := f.store.Carts().GetByID(ctx, "cart_1")
	require.NoError(t, err)
	require.NotEmpty(t, cart.PaymentCollectionID)
	ps, err := f.store.PaymentSessions().FindByPaymentID(ctx, cart.PaymentCollectionID, []string{payment.ProviderAlias}, "CART-cart_1")
	require.NoError(t, err)
	assert.Equal(t, string(payment.StatusPending), ps.Status)
	assert.Equal(t, "https://vipps.test/pay", ps.Data[payment.KeyURL])
}

func TestInitiate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout.Initiate(ctx, InitiateRequest{CartID: "cart_1", Currency: "nok"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = f.svc.Checkout.Initiate(ctx, InitiateRequest{CartID: "missing", Amount: 100, Currency: "nok"})
	assert.ErrorIs(t, err, ErrCartNotFound)

	unconfigured := NewCheckoutService(Deps{
		Provider: payment.NewProvider(payment.Options{}, nil),
		Carts:    f.store.Carts(),
	})
	_, err = unconfigured.Initiate(ctx, InitiateRequest{CartID: "cart_1", Amount: 100, Currency: "nok"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInitiate_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.store.PutCart(repository.Cart{ID: "cart_2"})
	boom := errors.New("vipps down")
	f.gw.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in vipps.CreatePaymentRequest) (*vipps.CreatePaymentResponse, error) {
			assert.Equal(t, "Order payment", in.Description)
			assert.Empty(t, in.Email)
			return nil, boom
		})

	_, err := f.svc.Checkout.Initiate(context.Background(), InitiateRequest{CartID: "cart_2", Amount: 100, Currency: "nok"})
	assert.ErrorIs(t, err, boom)
}

func seedSession(t *testing.T, f *fixture, cartID, providerID, paymentID string) *repository.PaymentSession {
	t.Helper()
	ctx := context.Background()
	f.store.PutCart(repository.Cart{ID: cartID})
	colID, err := f.store.Carts().EnsurePaymentCollection(ctx, cartID, "nok", 10000)
	require.NoError(t, err)
	ps, err := f.store.PaymentSessions().Upsert(ctx, repository.UpsertPaymentSessionInput{
		PaymentCollectionID: colID,
		ProviderID:          providerID,
		Status:              string(payment.StatusPending),
		Amount:              10000,
		CurrencyCode:        "nok",
		Data:                map[string]any{payment.KeyPaymentID: paymentID, "extra": "kept"},
	})
	require.NoError(t, err)
	return ps
}

func TestCallback_UpdatesSession(t *testing.T) {
	f := newFixture(t)
	ps := seedSession(t, f, "cart_3", payment.ProviderAlias, "CART-cart_3")
	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_3").Return(vippsPayment("CART-cart_3", "AUTHORIZED"), nil)

	require.NoError(t, f.svc.Updates.Callback(context.Background(), "CART-cart_3"))

	got, err := f.store.PaymentSessions().GetByID(context.Background(), ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "authorized", got.Status)
	assert.Equal(t, "AUTHORIZED", got.Data[payment.KeyPaymentStatus])
	assert.Equal(t, "kept", got.Data["extra"])
	assert.NotNil(t, got.Data[payment.KeyPaymentData])
}

func TestCallback_LocalFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-nope").Return(vippsPayment("CART-nope", "AUTHORIZED"), nil)
	assert.NoError(t, f.svc.Updates.Callback(context.Background(), "CART-nope"))

	assert.ErrorIs(t, f.svc.Updates.Callback(context.Background(), " "), ErrMissingPaymentID)

	f.gw.EXPECT().GetPayment(gomock.Any(), "x").Return(nil, errors.New("vipps down"))
	assert.Error(t, f.svc.Updates.Callback(context.Background(), "x"))
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := seedSession(t, f, "cart_4", payment.ProviderID, "CART-cart_4")

	err := f.svc.Updates.Webhook(ctx, map[string]any{"msn": "123"})
	assert.ErrorIs(t, err, payment.ErrInvalidPayload)

	// El estado del payload no se aplica: manda lo que responde Vipps.
	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_4").Return(vippsPayment("CART-cart_4", "CREATED"), nil)
	require.NoError(t, f.svc.Updates.Webhook(ctx, map[string]any{"paymentId": "CART-cart_4", "state": "AUTHORIZED"}))
	got, err := f.store.PaymentSessions().GetByID(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "CREATED", got.Data[payment.KeyPaymentStatus])
	assert.Equal(t, "AUTHORIZED", got.Data[KeyWebhookState])
	assert.Equal(t, "kept", got.Data["extra"])

	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_4").Return(vippsPayment("CART-cart_4", "CAPTURED"), nil)
	require.NoError(t, f.svc.Updates.Webhook(ctx, map[string]any{"reference": "CART-cart_4", "name": "TERMINATED"}))
	got, err = f.store.PaymentSessions().GetByID(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "authorized", got.Status)

	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_4").Return(nil, errors.New("vipps down"))
	require.NoError(t, f.svc.Updates.Webhook(ctx, map[string]any{"paymentId": "CART-cart_4", "state": "TERMINATED"}))
	got, err = f.store.PaymentSessions().GetByID(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "authorized", got.Status, "a failed lookup leaves the session untouched")

	assert.NoError(t, f.svc.Updates.Webhook(ctx, map[string]any{"paymentId": "unknown", "state": "AUTHORIZED"}))
}

func TestAdmin_CaptureAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := seedSession(t, f, "cart_5", payment.ProviderAlias, "CART-cart_5")

	gomock.InOrder(
		f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_5").Return(vippsPayment("CART-cart_5", "AUTHORIZED"), nil),
		f.gw.EXPECT().CapturePayment(gomock.Any(), "CART-cart_5", vipps.Amount{Currency: "NOK", Value: 10000}).Return(nil),
		f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_5").Return(vippsPayment("CART-cart_5", "CAPTURED"), nil),
	)
	res, err := f.svc.Admin.Capture(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "authorized", res.Status)
	assert.Equal(t, "CAPTURED", res.Data[payment.KeyPaymentStatus])

	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_5").Return(vippsPayment("CART-cart_5", "CAPTURED"), nil)
	_, err = f.svc.Admin.Capture(ctx, ps.ID)
	require.NoError(t, err, "capturing a captured payment is a no-op")

	gomock.InOrder(
		f.gw.EXPECT().CancelPayment(gomock.Any(), "CART-cart_5", gomock.Any()).Return(nil),
		f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_5").Return(vippsPayment("CART-cart_5", "TERMINATED"), nil),
	)
	res, err = f.svc.Admin.Cancel(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", res.Status)
}

func TestAdmin_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Admin.Authorize(ctx, "payses_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	other := seedSession(t, f, "cart_6", "pp_stripe", "pi_1")
	_, err = f.svc.Admin.Status(ctx, other.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	ps := seedSession(t, f, "cart_7", payment.ProviderAlias, "CART-cart_7")
	_, err = f.svc.Admin.Refund(ctx, ps.ID, 500)
	assert.ErrorIs(t, err, payment.ErrNotSupported)

	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_7").Return(vippsPayment("CART-cart_7", "CREATED"), nil)
	_, err = f.svc.Admin.Capture(ctx, ps.ID)
	assert.ErrorIs(t, err, payment.ErrInvalidData)

	f.gw.EXPECT().GetPayment(gomock.Any(), "CART-cart_7").Return(nil, errors.New("down"))
	res, err := f.svc.Admin.Status(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, string(payment.StatusError), res.Status)
}
