package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
)

// mockResolver implements service.IdentityResolver for testing
type mockResolver struct {
	resolveFunc func(ctx context.Context, rc domain.RequestContext) (service.Resolution, error)
	last        domain.RequestContext
}

func (m *mockResolver) Resolve(ctx context.Context, rc domain.RequestContext) (service.Resolution, error) {
	m.last = rc
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, rc)
	}
	return service.Resolution{Identity: domain.GuestIdentity("guest-tok"), EchoToken: "guest-tok"}, nil
}

// mockCartService implements service.CartService for testing
type mockCartService struct {
	getCartFunc            func(ctx context.Context, identity domain.Identity) (*domain.CartSummary, error)
	addItemFunc            func(ctx context.Context, identity domain.Identity, productID string, quantity int) (*service.ItemResult, error)
	updateItemQuantityFunc func(ctx context.Context, identity domain.Identity, itemID string, quantity int) (*service.ItemResult, error)
	removeItemFunc         func(ctx context.Context, identity domain.Identity, itemID string) (*service.RemoveResult, error)
	clearCartFunc          func(ctx context.Context, identity domain.Identity) (*domain.CartTotals, error)
}

func (m *mockCartService) GetCart(ctx context.Context, identity domain.Identity) (*domain.CartSummary, error) {
	if m.getCartFunc != nil {
		return m.getCartFunc(ctx, identity)
	}
	return &domain.CartSummary{}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, identity domain.Identity, productID string, quantity int) (*service.ItemResult, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, identity, productID, quantity)
	}
	return &service.ItemResult{}, nil
}

func (m *mockCartService) UpdateItemQuantity(ctx context.Context, identity domain.Identity, itemID string, quantity int) (*service.ItemResult, error) {
	if m.updateItemQuantityFunc != nil {
		return m.updateItemQuantityFunc(ctx, identity, itemID, quantity)
	}
	return &service.ItemResult{}, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, identity domain.Identity, itemID string) (*service.RemoveResult, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, identity, itemID)
	}
	return &service.RemoveResult{}, nil
}

func (m *mockCartService) ClearCart(ctx context.Context, identity domain.Identity) (*domain.CartTotals, error) {
	if m.clearCartFunc != nil {
		return m.clearCartFunc(ctx, identity)
	}
	return &domain.CartTotals{}, nil
}

// mockProductService implements service.ProductService for testing
type mockProductService struct {
	listProductsFunc   func(ctx context.Context, filter domain.ProductFilter) (*domain.PageResult[domain.Product], error)
	getProductFunc     func(ctx context.Context, productID string) (*domain.Product, error)
	listCategoriesFunc func(ctx context.Context) ([]domain.Category, error)
	getCategoryFunc    func(ctx context.Context, categoryID string) (*domain.Category, error)
}

func (m *mockProductService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.PageResult[domain.Product], error) {
	if m.listProductsFunc != nil {
		return m.listProductsFunc(ctx, filter)
	}
	return &domain.PageResult[domain.Product]{}, nil
}

func (m *mockProductService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if m.getProductFunc != nil {
		return m.getProductFunc(ctx, productID)
	}
	return nil, service.ErrProductNotFound
}

func (m *mockProductService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.listCategoriesFunc != nil {
		return m.listCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockProductService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	if m.getCategoryFunc != nil {
		return m.getCategoryFunc(ctx, categoryID)
	}
	return nil, service.ErrCategoryNotFound
}

// mockOrderService implements service.OrderService for testing
type mockOrderService struct {
	listOrdersFunc func(ctx context.Context, userID uuid.UUID, page domain.Page) (*domain.PageResult[domain.Order], error)
	getOrderFunc   func(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error)
}

func (m *mockOrderService) ListOrders(ctx context.Context, userID uuid.UUID, page domain.Page) (*domain.PageResult[domain.Order], error) {
	if m.listOrdersFunc != nil {
		return m.listOrdersFunc(ctx, userID, page)
	}
	return &domain.PageResult[domain.Order]{}, nil
}

func (m *mockOrderService) GetOrder(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, userID, orderID)
	}
	return nil, service.ErrOrderNotFound
}

// mockAccountService implements service.AccountService for testing
type mockAccountService struct {
	registerFunc             func(ctx context.Context, params service.RegisterParams) (*domain.User, error)
	loginFunc                func(ctx context.Context, email, password string) (*service.LoginResult, error)
	logoutFunc               func(ctx context.Context, userID uuid.UUID, refresh string) error
	refreshTokenFunc         func(ctx context.Context, refresh string) (string, error)
	verifyEmailFunc          func(ctx context.Context, token string) error
	resendVerificationFunc   func(ctx context.Context, email string) (bool, error)
	requestPasswordResetFunc func(ctx context.Context, email string) error
	confirmPasswordResetFunc func(ctx context.Context, token, newPassword string) error
	requestEmailChangeFunc   func(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error
	confirmEmailChangeFunc   func(ctx context.Context, token string) (*domain.User, error)
	profileFunc              func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	updateProfileFunc        func(ctx context.Context, userID uuid.UUID, update service.ProfileUpdate) (*domain.User, error)
	changePasswordFunc       func(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

func (m *mockAccountService) Register(ctx context.Context, params service.RegisterParams) (*domain.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, params)
	}
	return &domain.User{ID: uuid.New(), Email: params.Email}, nil
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, service.ErrInvalidCredentials
}

func (m *mockAccountService) Logout(ctx context.Context, userID uuid.UUID, refresh string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, userID, refresh)
	}
	return nil
}

func (m *mockAccountService) RefreshToken(ctx context.Context, refresh string) (string, error) {
	if m.refreshTokenFunc != nil {
		return m.refreshTokenFunc(ctx, refresh)
	}
	return "", service.ErrInvalidRefreshToken
}

func (m *mockAccountService) VerifyEmail(ctx context.Context, token string) error {
	if m.verifyEmailFunc != nil {
		return m.verifyEmailFunc(ctx, token)
	}
	return nil
}

func (m *mockAccountService) ResendVerification(ctx context.Context, email string) (bool, error) {
	if m.resendVerificationFunc != nil {
		return m.resendVerificationFunc(ctx, email)
	}
	return false, nil
}

func (m *mockAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.requestPasswordResetFunc != nil {
		return m.requestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *mockAccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.confirmPasswordResetFunc != nil {
		return m.confirmPasswordResetFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *mockAccountService) RequestEmailChange(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error {
	if m.requestEmailChangeFunc != nil {
		return m.requestEmailChangeFunc(ctx, userID, currentPassword, newEmail)
	}
	return nil
}

func (m *mockAccountService) ConfirmEmailChange(ctx context.Context, token string) (*domain.User, error) {
	if m.confirmEmailChangeFunc != nil {
		return m.confirmEmailChangeFunc(ctx, token)
	}
	return nil, service.ErrInvalidChangeToken
}

func (m *mockAccountService) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx, userID)
	}
	return &domain.User{ID: userID}, nil
}

func (m *mockAccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, update service.ProfileUpdate) (*domain.User, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, userID, update)
	}
	return &domain.User{ID: userID}, nil
}

func (m *mockAccountService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if m.changePasswordFunc != nil {
		return m.changePasswordFunc(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

// mockAddressService implements service.AddressService for testing
type mockAddressService struct {
	listAddressesFunc     func(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
	getAddressFunc        func(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error)
	createAddressFunc     func(ctx context.Context, userID uuid.UUID, input service.AddressInput) (*domain.Address, error)
	updateAddressFunc     func(ctx context.Context, userID uuid.UUID, addressID string, input service.AddressInput) (*domain.Address, error)
	deleteAddressFunc     func(ctx context.Context, userID uuid.UUID, addressID string) error
	setPrimaryAddressFunc func(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error)
}

func (m *mockAddressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	if m.listAddressesFunc != nil {
		return m.listAddressesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockAddressService) GetAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error) {
	if m.getAddressFunc != nil {
		return m.getAddressFunc(ctx, userID, addressID)
	}
	return nil, service.ErrAddressNotFound
}

func (m *mockAddressService) CreateAddress(ctx context.Context, userID uuid.UUID, input service.AddressInput) (*domain.Address, error) {
	if m.createAddressFunc != nil {
		return m.createAddressFunc(ctx, userID, input)
	}
	return &domain.Address{ID: uuid.New(), UserID: userID, Label: input.Label}, nil
}

func (m *mockAddressService) UpdateAddress(ctx context.Context, userID uuid.UUID, addressID string, input service.AddressInput) (*domain.Address, error) {
	if m.updateAddressFunc != nil {
		return m.updateAddressFunc(ctx, userID, addressID, input)
	}
	return nil, service.ErrAddressNotFound
}

func (m *mockAddressService) DeleteAddress(ctx context.Context, userID uuid.UUID, addressID string) error {
	if m.deleteAddressFunc != nil {
		return m.deleteAddressFunc(ctx, userID, addressID)
	}
	return nil
}

func (m *mockAddressService) SetPrimaryAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error) {
	if m.setPrimaryAddressFunc != nil {
		return m.setPrimaryAddressFunc(ctx, userID, addressID)
	}
	return nil, service.ErrAddressNotFound
}

// response is the envelope with data left raw for per-test decoding.
type response struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     map[string]string   `json:"errors"`
	Pagination *handler.Pagination `json:"pagination"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func decodeData(t *testing.T, resp response, dst any) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}
