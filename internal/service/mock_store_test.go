package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var errCheckViolation = errors.New("violates check constraint \"cart_items_quantity_check\"")

// mockStore is an in-memory repository.Store. ExecTx runs one transaction
// at a time and restores cart and account state when fn fails.
type mockStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products   []repository.Product
	images     []repository.ProductImage
	categories []repository.Category
	users      []repository.User
	carts      []repository.Cart
	items      []repository.CartItem
	orders     []repository.Order
	orderItems []repository.GetOrderItemsRow
	tokens     []repository.AccountToken
	addresses  []repository.Address

	clock time.Time

	// failOn makes the named method return the error.
	failOn map[string]error

	lastList   repository.ListProductsParams
	lastCount  repository.CountProductsParams
	lastOrders repository.ListOrdersByUserParams
	txCount    int
}

var _ repository.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		clock:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		failOn: map[string]error{},
	}
}

func (s *mockStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.txCount++
	carts := slices.Clone(s.carts)
	items := slices.Clone(s.items)
	users := slices.Clone(s.users)
	tokens := slices.Clone(s.tokens)
	addresses := slices.Clone(s.addresses)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.carts, s.items = carts, items
		s.users, s.tokens, s.addresses = users, tokens, addresses
		s.mu.Unlock()
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}

func (s *mockStore) now() pgtype.Timestamptz {
	s.clock = s.clock.Add(time.Second)
	return pgtype.Timestamptz{Time: s.clock, Valid: true}
}

func (s *mockStore) fail(method string) error {
	return s.failOn[method]
}

// Seeding helpers

func (s *mockStore) addCategory(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.categories = append(s.categories, repository.Category{
		ID:        repository.UUID(id),
		Name:      name,
		IsActive:  true,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	})
	return id
}

func (s *mockStore) addProduct(name, price string, stock int32) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.products = append(s.products, repository.Product{
		ID:            repository.UUID(id),
		Name:          name,
		Sku:           strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Price:         repository.Numeric(decimal.RequireFromString(price)),
		UnitOfMeasure: "piece",
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	})
	return id
}

func (s *mockStore) updateProduct(id uuid.UUID, fn func(p *repository.Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if repository.FromUUID(s.products[i].ID) == id {
			fn(&s.products[i])
		}
	}
}

func (s *mockStore) addImage(productID uuid.UUID, url string, primary bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, repository.ProductImage{
		ID:        repository.UUID(uuid.New()),
		ProductID: repository.UUID(productID),
		Url:       url,
		IsPrimary: primary,
		CreatedAt: s.now(),
	})
}

func (s *mockStore) addOrder(userID uuid.UUID, status, total string, lines ...repository.GetOrderItemsRow) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.orders = append(s.orders, repository.Order{
		ID:          repository.UUID(id),
		UserID:      repository.UUID(userID),
		Status:      status,
		TotalAmount: repository.Numeric(decimal.RequireFromString(total)),
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	})
	for _, line := range lines {
		line.ID = repository.UUID(uuid.New())
		line.OrderID = repository.UUID(id)
		line.CreatedAt = s.now()
		s.orderItems = append(s.orderItems, line)
	}
	return id
}

func (s *mockStore) cartItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *mockStore) cartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// Querier implementation

func (s *mockStore) findProduct(id pgtype.UUID) (repository.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return repository.Product{}, false
}

func (s *mockStore) categoryName(id pgtype.UUID) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (s *mockStore) primaryImage(productID pgtype.UUID) string {
	if imgs := s.sortedImages(productID); len(imgs) > 0 {
		return imgs[0].Url
	}
	return ""
}

func (s *mockStore) sortedImages(productID pgtype.UUID) []repository.ProductImage {
	var out []repository.ProductImage
	for _, img := range s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

func (s *mockStore) ClearCart(ctx context.Context, cartID pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ClearCart"); err != nil {
		return 0, err
	}
	kept := s.items[:0:0]
	var n int64
	for _, item := range s.items {
		if item.CartID == cartID {
			n++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return n, nil
}

func (s *mockStore) CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountOrdersByUser"); err != nil {
		return 0, err
	}
	var n int64
	for _, o := range s.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *mockStore) matchProduct(p repository.Product, arg repository.CountProductsParams) bool {
	if !p.IsActive {
		return false
	}
	if arg.CategoryID.Valid && p.CategoryID != arg.CategoryID {
		return false
	}
	price := repository.Decimal(p.Price)
	if arg.MinPrice.Valid && price.LessThan(repository.Decimal(arg.MinPrice)) {
		return false
	}
	if arg.MaxPrice.Valid && price.GreaterThan(repository.Decimal(arg.MaxPrice)) {
		return false
	}
	if arg.InStock.Valid && (p.StockQuantity > 0) != arg.InStock.Bool {
		return false
	}
	if arg.Search != "" {
		needle := strings.ToLower(arg.Search)
		hay := strings.ToLower(p.Name + " " + p.Description + " " + p.Sku)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func (s *mockStore) CountProducts(ctx context.Context, arg repository.CountProductsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCount = arg
	if err := s.fail("CountProducts"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range s.products {
		if s.matchProduct(p, arg) {
			n++
		}
	}
	return n, nil
}

func (s *mockStore) CreateGuestCart(ctx context.Context, sessionKey pgtype.Text) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateGuestCart"); err != nil {
		return err
	}
	for _, c := range s.carts {
		if !c.UserID.Valid && c.SessionKey == sessionKey {
			return nil
		}
	}
	s.carts = append(s.carts, repository.Cart{
		ID:         repository.UUID(uuid.New()),
		SessionKey: sessionKey,
		CreatedAt:  s.now(),
		UpdatedAt:  s.now(),
	})
	return nil
}

func (s *mockStore) CreateUserCart(ctx context.Context, userID pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUserCart"); err != nil {
		return err
	}
	for _, c := range s.carts {
		if c.UserID == userID {
			return nil
		}
	}
	s.carts = append(s.carts, repository.Cart{
		ID:        repository.UUID(uuid.New()),
		UserID:    userID,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	})
	return nil
}

func (s *mockStore) DeleteCartItem(ctx context.Context, arg repository.DeleteCartItemParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteCartItem"); err != nil {
		return 0, err
	}
	for i, item := range s.items {
		if item.ID == arg.ID && item.CartID == arg.CartID {
			s.items = slices.Delete(slices.Clone(s.items), i, i+1)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *mockStore) DeleteStaleGuestCarts(ctx context.Context, updatedBefore pgtype.Timestamptz) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteStaleGuestCarts"); err != nil {
		return 0, err
	}
	removed := map[pgtype.UUID]bool{}
	kept := s.carts[:0:0]
	for _, c := range s.carts {
		if !c.UserID.Valid && c.UpdatedAt.Time.Before(updatedBefore.Time) {
			removed[c.ID] = true
			continue
		}
		kept = append(kept, c)
	}
	s.carts = kept
	items := s.items[:0:0]
	for _, item := range s.items {
		if !removed[item.CartID] {
			items = append(items, item)
		}
	}
	s.items = items
	return int64(len(removed)), nil
}

func (s *mockStore) GetActiveCategory(ctx context.Context, id pgtype.UUID) (repository.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetActiveCategory"); err != nil {
		return repository.Category{}, err
	}
	for _, c := range s.categories {
		if c.ID == id && c.IsActive {
			return c, nil
		}
	}
	return repository.Category{}, pgx.ErrNoRows
}

func (s *mockStore) GetActiveProduct(ctx context.Context, id pgtype.UUID) (repository.GetActiveProductRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetActiveProduct"); err != nil {
		return repository.GetActiveProductRow{}, err
	}
	p, ok := s.findProduct(id)
	if !ok || !p.IsActive {
		return repository.GetActiveProductRow{}, pgx.ErrNoRows
	}
	return repository.GetActiveProductRow{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Sku:           p.Sku,
		Price:         p.Price,
		UnitOfMeasure: p.UnitOfMeasure,
		CategoryID:    p.CategoryID,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		CategoryName:  s.categoryName(p.CategoryID),
	}, nil
}

func (s *mockStore) GetActiveUser(ctx context.Context, id pgtype.UUID) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id && u.IsActive {
			return u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

func (s *mockStore) GetCartBySessionKey(ctx context.Context, sessionKey pgtype.Text) (repository.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartBySessionKey"); err != nil {
		return repository.Cart{}, err
	}
	for _, c := range s.carts {
		if !c.UserID.Valid && c.SessionKey == sessionKey {
			return c, nil
		}
	}
	return repository.Cart{}, pgx.ErrNoRows
}

func (s *mockStore) GetCartByUserID(ctx context.Context, userID pgtype.UUID) (repository.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartByUserID"); err != nil {
		return repository.Cart{}, err
	}
	for _, c := range s.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return repository.Cart{}, pgx.ErrNoRows
}

func (s *mockStore) itemRow(item repository.CartItem) repository.GetCartItemsRow {
	p, _ := s.findProduct(item.ProductID)
	return repository.GetCartItemsRow{
		ID:                   item.ID,
		CartID:               item.CartID,
		ProductID:            item.ProductID,
		Quantity:             item.Quantity,
		UnitPrice:            item.UnitPrice,
		CreatedAt:            item.CreatedAt,
		UpdatedAt:            item.UpdatedAt,
		ProductName:          p.Name,
		ProductSku:           p.Sku,
		ProductStockQuantity: p.StockQuantity,
		ProductIsActive:      p.IsActive,
		ImageUrl:             s.primaryImage(item.ProductID),
	}
}

func (s *mockStore) GetCartItem(ctx context.Context, arg repository.GetCartItemParams) (repository.GetCartItemRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartItem"); err != nil {
		return repository.GetCartItemRow{}, err
	}
	for _, item := range s.items {
		if item.ID == arg.ID && item.CartID == arg.CartID {
			return repository.GetCartItemRow(s.itemRow(item)), nil
		}
	}
	return repository.GetCartItemRow{}, pgx.ErrNoRows
}

func (s *mockStore) GetCartItemByProductForUpdate(ctx context.Context, arg repository.GetCartItemByProductForUpdateParams) (repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartItemByProductForUpdate"); err != nil {
		return repository.CartItem{}, err
	}
	for _, item := range s.items {
		if item.CartID == arg.CartID && item.ProductID == arg.ProductID {
			return item, nil
		}
	}
	return repository.CartItem{}, pgx.ErrNoRows
}

func (s *mockStore) GetCartItemForUpdate(ctx context.Context, arg repository.GetCartItemForUpdateParams) (repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartItemForUpdate"); err != nil {
		return repository.CartItem{}, err
	}
	for _, item := range s.items {
		if item.ID == arg.ID && item.CartID == arg.CartID {
			return item, nil
		}
	}
	return repository.CartItem{}, pgx.ErrNoRows
}

func (s *mockStore) GetCartItems(ctx context.Context, cartID pgtype.UUID) ([]repository.GetCartItemsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCartItems"); err != nil {
		return nil, err
	}
	rows := []repository.GetCartItemsRow{}
	for _, item := range s.items {
		if item.CartID == cartID {
			rows = append(rows, s.itemRow(item))
		}
	}
	return rows, nil
}

func (s *mockStore) GetOrderForUser(ctx context.Context, arg repository.GetOrderForUserParams) (repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetOrderForUser"); err != nil {
		return repository.Order{}, err
	}
	for _, o := range s.orders {
		if o.ID == arg.ID && o.UserID == arg.UserID {
			return o, nil
		}
	}
	return repository.Order{}, pgx.ErrNoRows
}

func (s *mockStore) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]repository.GetOrderItemsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetOrderItems"); err != nil {
		return nil, err
	}
	rows := []repository.GetOrderItemsRow{}
	for _, line := range s.orderItems {
		if line.OrderID == orderID {
			rows = append(rows, line)
		}
	}
	return rows, nil
}

func (s *mockStore) InsertCartItem(ctx context.Context, arg repository.InsertCartItemParams) (repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertCartItem"); err != nil {
		return repository.CartItem{}, err
	}
	if arg.Quantity < 1 || arg.Quantity > 99 {
		return repository.CartItem{}, errCheckViolation
	}
	for _, item := range s.items {
		if item.CartID == arg.CartID && item.ProductID == arg.ProductID {
			return repository.CartItem{}, pgx.ErrNoRows
		}
	}
	item := repository.CartItem{
		ID:        repository.UUID(uuid.New()),
		CartID:    arg.CartID,
		ProductID: arg.ProductID,
		Quantity:  arg.Quantity,
		UnitPrice: arg.UnitPrice,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	s.items = append(s.items, item)
	return item, nil
}

func (s *mockStore) ListActiveCategories(ctx context.Context) ([]repository.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListActiveCategories"); err != nil {
		return nil, err
	}
	out := []repository.Category{}
	for _, c := range s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *mockStore) ListOrdersByUser(ctx context.Context, arg repository.ListOrdersByUserParams) ([]repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOrders = arg
	if err := s.fail("ListOrdersByUser"); err != nil {
		return nil, err
	}
	var mine []repository.Order
	for _, o := range s.orders {
		if o.UserID == arg.UserID {
			mine = append(mine, o)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.Time.After(mine[j].CreatedAt.Time) })
	return page(mine, arg.Limit, arg.Offset), nil
}

func (s *mockStore) ListProductImages(ctx context.Context, productID pgtype.UUID) ([]repository.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListProductImages"); err != nil {
		return nil, err
	}
	return s.sortedImages(productID), nil
}

func (s *mockStore) ListProducts(ctx context.Context, arg repository.ListProductsParams) ([]repository.ListProductsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = arg
	if err := s.fail("ListProducts"); err != nil {
		return nil, err
	}
	filter := repository.CountProductsParams{
		CategoryID: arg.CategoryID,
		MinPrice:   arg.MinPrice,
		MaxPrice:   arg.MaxPrice,
		InStock:    arg.InStock,
		Search:     arg.Search,
	}
	var rows []repository.ListProductsRow
	for _, p := range s.products {
		if !s.matchProduct(p, filter) {
			continue
		}
		rows = append(rows, repository.ListProductsRow{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Sku:           p.Sku,
			Price:         p.Price,
			UnitOfMeasure: p.UnitOfMeasure,
			CategoryID:    p.CategoryID,
			StockQuantity: p.StockQuantity,
			IsActive:      p.IsActive,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			CategoryName:  s.categoryName(p.CategoryID),
			ImageUrl:      s.primaryImage(p.ID),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		switch arg.Ordering {
		case "name":
			return rows[i].Name < rows[j].Name
		case "-name":
			return rows[i].Name > rows[j].Name
		case "price":
			return repository.Decimal(rows[i].Price).LessThan(repository.Decimal(rows[j].Price))
		case "-price":
			return repository.Decimal(rows[i].Price).GreaterThan(repository.Decimal(rows[j].Price))
		}
		return rows[i].CreatedAt.Time.After(rows[j].CreatedAt.Time)
	})
	return page(rows, arg.Limit, arg.Offset), nil
}

func (s *mockStore) TouchCart(ctx context.Context, id pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TouchCart"); err != nil {
		return err
	}
	for i := range s.carts {
		if s.carts[i].ID == id {
			s.carts[i].UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *mockStore) UpdateCartItemQuantity(ctx context.Context, arg repository.UpdateCartItemQuantityParams) (repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateCartItemQuantity"); err != nil {
		return repository.CartItem{}, err
	}
	if arg.Quantity < 1 || arg.Quantity > 99 {
		return repository.CartItem{}, errCheckViolation
	}
	for i := range s.items {
		if s.items[i].ID == arg.ID && s.items[i].CartID == arg.CartID {
			s.items[i].Quantity = arg.Quantity
			s.items[i].UpdatedAt = s.now()
			return s.items[i], nil
		}
	}
	return repository.CartItem{}, pgx.ErrNoRows
}

func page[T any](rows []T, limit, offset int32) []T {
	out := []T{}
	for i := int(offset); i < len(rows) && len(out) < int(limit); i++ {
		out = append(out, rows[i])
	}
	return out
}
