package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/store"
)

// Store is an in-memory repository used for dev mode and tests. A single
// mutex guards all state, so CommitSale is atomic by construction: it
// validates every line before touching stock, and no other writer can
// interleave between validation and deduction.
type Store struct {
	mu           sync.RWMutex
	products     map[int64]domain.Product
	clients      map[int64]domain.Client
	staff        map[string]domain.StaffAccount
	saleHeaders  map[int64]domain.SaleHeaderView
	saleItems    map[int64][]domain.SaleItemView
	nextSKU      int64
	nextClientID int64
	nextStaffID  int64
	nextSaleID   int64
	nextLineID   int64
}

// seedStaff builds the initial staff accounts for dev/demo mode.
// Credentials come from SEED_MANAGER_PASSWORD and SEED_ASSOCIATE_PASSWORD
// environment variables; if unset, hardcoded dev defaults are used with a
// warning. These credentials are never used in production (the backend
// uses PostgreSQL when DATABASE_URL is set).
func seedStaff() map[string]domain.StaffAccount {
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "admin789")
	associatePwd := envOr("SEED_ASSOCIATE_PASSWORD", "staff1")
	if os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_ASSOCIATE_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_MANAGER_PASSWORD and SEED_ASSOCIATE_PASSWORD to override.")
	}

	accounts := map[string]domain.StaffAccount{}
	id := int64(1)
	for _, s := range []struct {
		username string
		password string
		role     string
		display  string
	}{
		{"nitesh", managerPwd, domain.RoleManager, "Nitesh"},
		{"prajwal", associatePwd, domain.RoleAssociate, "Prajwal"},
		{"kebin", associatePwd, domain.RoleAssociate, "Kebin"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", s.username, err)
		}
		accounts[s.username] = domain.StaffAccount{
			ID:          id,
			Username:    s.username,
			PassHash:    string(hash),
			Role:        s.role,
			DisplayName: s.display,
		}
		id++
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	products := []domain.Product{
		{SKU: 1, Name: "Urban Cargo Pants", Category: "Bottoms", UnitPriceCents: 4500, QtyInStock: 40, Details: "Relaxed fit cargo pants"},
		{SKU: 2, Name: "Oversized Hoodie", Category: "Tops", UnitPriceCents: 6550, QtyInStock: 30, Details: "Heavyweight fleece hoodie"},
		{SKU: 3, Name: "Air Runners", Category: "Shoes", UnitPriceCents: 8999, QtyInStock: 15, Details: "Lightweight mesh runners"},
		{SKU: 4, Name: "Floral Dress", Category: "Dresses", UnitPriceCents: 3999, QtyInStock: 20, Details: "Summer floral print"},
	}
	clients := []domain.Client{
		{ID: 1, FullName: "John Doe", Contact: "9800000001", Email: "john@example.com", Tier: domain.TierRegular},
		{ID: 2, FullName: "Jane Smith", Contact: "9800000002", Email: "jane@example.com", Tier: domain.TierGold},
		{ID: 3, FullName: "Mike Ross", Contact: "9800000003", Email: "mike@example.com", Tier: domain.TierSilver},
	}

	productMap := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		productMap[p.SKU] = p
	}
	clientMap := make(map[int64]domain.Client, len(clients))
	for _, c := range clients {
		clientMap[c.ID] = c
	}

	return &Store{
		products:     productMap,
		clients:      clientMap,
		staff:        seedStaff(),
		saleHeaders:  make(map[int64]domain.SaleHeaderView),
		saleItems:    make(map[int64][]domain.SaleItemView),
		nextSKU:      int64(len(products)) + 1,
		nextClientID: int64(len(clients)) + 1,
		nextStaffID:  4,
		nextSaleID:   1,
		nextLineID:   1,
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return int(a.SKU - b.SKU)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, sku int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.UnitPriceCents < 1 || product.QtyInStock < 0 {
		return nil, store.ErrInvalidInput
	}

	product.SKU = s.nextSKU
	s.nextSKU++
	s.products[product.SKU] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.UnitPriceCents < 1 || product.QtyInStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.SKU]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.SKU] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, sku int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[sku]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, sku)
	return nil
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b domain.Client) int {
		return int(a.ID - b.ID)
	})
	return clients, nil
}

func (s *Store) GetClient(_ context.Context, clientID int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, exists := s.clients[clientID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyClient := client
	return &copyClient, nil
}

func (s *Store) RegisterClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(client.FullName) == "" || !client.Tier.Valid() {
		return nil, store.ErrInvalidInput
	}

	client.ID = s.nextClientID
	s.nextClientID++
	s.clients[client.ID] = client
	created := client
	return &created, nil
}

// CommitSale validates every line against live stock before deducting
// anything, so a failure on the last line leaves no trace of the sale.
func (s *Store) CommitSale(_ context.Context, draft domain.SaleDraft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(draft.Lines) == 0 || draft.StaffID < 1 {
		return 0, store.ErrInvalidInput
	}

	// Requested quantity per sku across sizes; stock is tracked per sku.
	requested := make(map[int64]int, len(draft.Lines))
	for _, line := range draft.Lines {
		if line.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
		requested[line.Key.SKU] += line.Qty
	}
	for sku, qty := range requested {
		product, exists := s.products[sku]
		if !exists {
			return 0, &store.ProductNotFoundError{SKU: sku}
		}
		if product.QtyInStock < qty {
			return 0, &store.InsufficientStockError{SKU: sku, Requested: qty, Available: product.QtyInStock}
		}
	}

	saleID := s.nextSaleID
	s.nextSaleID++

	items := make([]domain.SaleItemView, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		product := s.products[line.Key.SKU]
		items = append(items, domain.SaleItemView{
			LineID:           s.nextLineID,
			SaleID:           saleID,
			SKU:              line.Key.SKU,
			Name:             product.Name,
			Qty:              line.Qty,
			ItemSize:         line.Key.Size,
			SoldAtPriceCents: product.UnitPriceCents,
		})
		s.nextLineID++
		product.QtyInStock -= line.Qty
		s.products[line.Key.SKU] = product
	}

	staffName := ""
	for _, acct := range s.staff {
		if acct.ID == draft.StaffID {
			staffName = acct.DisplayName
			break
		}
	}
	clientName := "Walk-in"
	if draft.ClientID != nil {
		if client, ok := s.clients[*draft.ClientID]; ok {
			clientName = client.FullName
		}
	}

	s.saleHeaders[saleID] = domain.SaleHeaderView{
		SaleID:        saleID,
		StaffID:       draft.StaffID,
		StaffName:     staffName,
		ClientID:      draft.ClientID,
		ClientName:    clientName,
		SubtotalCents: draft.SubtotalCents,
		DiscountCents: draft.DiscountCents,
		TotalCents:    draft.TotalCents,
		PaymentMethod: draft.PaymentMethod,
		SaleDate:      time.Now().UTC(),
	}
	s.saleItems[saleID] = items

	return saleID, nil
}

func (s *Store) GetSaleHeader(_ context.Context, saleID int64) (*domain.SaleHeaderView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, exists := s.saleHeaders[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyHeader := header
	return &copyHeader, nil
}

func (s *Store) GetSaleItems(_ context.Context, saleID int64) ([]domain.SaleItemView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, exists := s.saleItems[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	result := make([]domain.SaleItemView, len(items))
	copy(result, items)
	return result, nil
}

func (s *Store) ListStaff(_ context.Context) ([]domain.StaffAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.StaffAccount, 0, len(s.staff))
	for _, acct := range s.staff {
		accounts = append(accounts, acct)
	}
	slices.SortFunc(accounts, func(a, b domain.StaffAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return accounts, nil
}

func (s *Store) GetStaffByUsername(_ context.Context, username string) (*domain.StaffAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, exists := s.staff[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyAcct := acct
	return &copyAcct, nil
}

func (s *Store) CreateStaff(_ context.Context, staff domain.StaffAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(staff.Username))
	if username == "" || strings.TrimSpace(staff.PassHash) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.staff[username]; exists {
		return store.ErrInvalidInput
	}
	staff.Username = username
	if staff.Role == "" {
		staff.Role = domain.RoleAssociate
	}
	staff.ID = s.nextStaffID
	s.nextStaffID++
	s.staff[username] = staff
	return nil
}

func (s *Store) UpdateStaffPassword(_ context.Context, username string, passHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passHash) == "" {
		return store.ErrInvalidInput
	}
	acct, exists := s.staff[username]
	if !exists {
		return store.ErrNotFound
	}
	acct.PassHash = passHash
	s.staff[username] = acct
	return nil
}
