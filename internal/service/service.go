package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"smartfit/backend/internal/cache"
	"smartfit/backend/internal/cart"
	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/pricing"
	"smartfit/backend/internal/receipt"
	"smartfit/backend/internal/store"
	"smartfit/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoClientSelected = errors.New("no client selected")
	ErrInvalidVoucher   = errors.New("invalid voucher code")
	ErrSessionNotFound  = errors.New("session not found")
)

// session is one open register interaction: a cart, an optional client,
// and the voucher state. Sessions live in memory only; a committed sale
// is the durable artifact, not the session.
type session struct {
	cart          *cart.Cart
	clientID      *int64
	voucherActive bool
}

type Service struct {
	repo       store.Repository
	pricer     pricing.Engine
	receipts   cache.ReceiptCache
	receiptTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func New(repo store.Repository, receipts cache.ReceiptCache, receiptTTL time.Duration) *Service {
	if receipts == nil {
		receipts = cache.NoopReceiptCache{}
	}
	if receiptTTL < time.Second {
		receiptTTL = time.Hour
	}

	return &Service{
		repo:       repo,
		receipts:   receipts,
		receiptTTL: receiptTTL,
		sessions:   make(map[string]*session),
	}
}

// OpenSession starts a fresh register interaction and returns its id.
func (s *Service) OpenSession(_ context.Context) string {
	id := xid.New("sess")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{cart: cart.New()}
	return id
}

// CloseSession discards an open session and everything in its cart.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *Service) getSession(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// AddItem puts one unit of the given variant in the session cart. The
// stock check here uses a point-in-time product read and is advisory
// only; checkout re-validates under the commit transaction.
func (s *Service) AddItem(ctx context.Context, sessionID string, sku int64, size string) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	snapshot, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.cart.Add(sku, size, *snapshot)
}

// SetQuantity sets an absolute quantity for a variant; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, key domain.VariantKey, qty int) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	var snapshot domain.Product
	if qty > 0 {
		product, err := s.repo.GetProduct(ctx, key.SKU)
		if err != nil {
			return err
		}
		snapshot = *product
	}
	if key.Size == "" {
		key.Size = domain.SizeNone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.cart.SetQuantity(key, qty, snapshot)
}

func (s *Service) ClearCart(_ context.Context, sessionID string) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.cart.Clear()
	return nil
}

// SelectClient attaches a registered client to the session. Their tier
// drives the discount on every later quote.
func (s *Service) SelectClient(ctx context.Context, sessionID string, clientID int64) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.clientID = &client.ID
	return nil
}

// ApplyVoucher validates the promo code against the session. A correct
// code activates the voucher and stays active; re-applying it is a
// no-op. A wrong code clears any active voucher and returns
// ErrInvalidVoucher, so a typo never leaves a stale discount behind.
func (s *Service) ApplyVoucher(_ context.Context, sessionID string, code string) (bool, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(code) != pricing.VoucherCode {
		sess.voucherActive = false
		return false, ErrInvalidVoucher
	}
	sess.voucherActive = true
	return true, nil
}

// Quote prices the session cart against live product prices.
func (s *Service) Quote(ctx context.Context, sessionID string) (domain.QuoteResponse, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return domain.QuoteResponse{}, err
	}

	s.mu.Lock()
	lines := sess.cart.Snapshot()
	itemCount := sess.cart.ItemCount()
	clientID := sess.clientID
	voucherActive := sess.voucherActive
	s.mu.Unlock()

	tier := domain.TierRegular
	if clientID != nil {
		client, err := s.repo.GetClient(ctx, *clientID)
		if err != nil {
			return domain.QuoteResponse{}, err
		}
		tier = client.Tier
	}

	totals, err := s.pricer.Quote(ctx, lines, s.repo, tier, voucherActive)
	if err != nil {
		return domain.QuoteResponse{}, err
	}

	return domain.QuoteResponse{
		Totals:        totals,
		Lines:         lines,
		ItemCount:     itemCount,
		ClientID:      clientID,
		Tier:          tier,
		VoucherActive: voucherActive,
	}, nil
}

// Checkout commits the session as one atomic sale. The totals are
// quoted fresh against live prices, then the repository re-validates
// stock line by line inside its transaction. On success the session is
// closed; on any commit failure the session and its cart survive intact
// so the user can adjust and retry.
func (s *Service) Checkout(ctx context.Context, sessionID string, paymentMethod string) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CheckoutResponse{}, fmt.Errorf("staff login required")
	}
	staff, err := s.repo.GetStaffByUsername(ctx, actor.Username)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("staff login required")
	}

	sess, err := s.getSession(sessionID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.mu.Lock()
	lines := sess.cart.Snapshot()
	clientID := sess.clientID
	voucherActive := sess.voucherActive
	s.mu.Unlock()

	if len(lines) == 0 {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}
	if clientID == nil {
		return domain.CheckoutResponse{}, ErrNoClientSelected
	}

	client, err := s.repo.GetClient(ctx, *clientID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	totals, err := s.pricer.Quote(ctx, lines, s.repo, client.Tier, voucherActive)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if paymentMethod == "" {
		paymentMethod = "Cash"
	}

	saleID, err := s.repo.CommitSale(ctx, domain.SaleDraft{
		StaffID:       staff.ID,
		ClientID:      clientID,
		Lines:         lines,
		SubtotalCents: totals.SubtotalCents,
		DiscountCents: totals.DiscountCents,
		TotalCents:    totals.TotalCents,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	header, err := s.repo.GetSaleHeader(ctx, saleID)
	if err != nil {
		// The sale committed; losing the readback only degrades the response.
		log.Printf("[service] WARN: sale %d committed but header readback failed: %v", saleID, err)
		header = &domain.SaleHeaderView{
			SaleID:        saleID,
			SubtotalCents: totals.SubtotalCents,
			DiscountCents: totals.DiscountCents,
			TotalCents:    totals.TotalCents,
			PaymentMethod: paymentMethod,
			SaleDate:      time.Now().UTC(),
		}
	}

	s.mu.Lock()
	sess.cart.Clear()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	return domain.CheckoutResponse{
		SaleID:        header.SaleID,
		SubtotalCents: header.SubtotalCents,
		DiscountCents: header.DiscountCents,
		TotalCents:    header.TotalCents,
		PaymentMethod: header.PaymentMethod,
		SaleDate:      header.SaleDate.Format(time.RFC3339),
	}, nil
}

// Receipt reconstructs a committed sale by id. Receipts are immutable,
// so a cache hit is always safe to serve.
func (s *Service) Receipt(ctx context.Context, saleID int64) (domain.Receipt, error) {
	if cached, ok, err := s.receipts.Get(ctx, saleID); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: receipt cache read failed for sale %d: %v", saleID, err)
	}

	header, err := s.repo.GetSaleHeader(ctx, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}
	items, err := s.repo.GetSaleItems(ctx, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}

	result := domain.Receipt{
		Header: *header,
		Items:  items,
		Text:   receipt.Render(*header, items),
	}

	if err := s.receipts.Set(ctx, saleID, &result, s.receiptTTL); err != nil {
		log.Printf("[service] WARN: receipt cache write failed for sale %d: %v", saleID, err)
	}

	return result, nil
}

// ListProducts returns the catalog with selectable sizes attached.
func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, domain.ProductView{
			Product: p,
			Sizes:   domain.SizesForCategory(p.Category),
		})
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, sku int64) (domain.ProductView, error) {
	product, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.ProductView{}, err
	}
	return domain.ProductView{
		Product: *product,
		Sizes:   domain.SizesForCategory(product.Category),
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || req.UnitPriceCents < 1 || req.QtyInStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
		QtyInStock:     req.QtyInStock,
		Details:        strings.TrimSpace(req.Details),
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	next := *existing
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		next.Category = strings.TrimSpace(*req.Category)
	}
	if req.UnitPriceCents != nil {
		next.UnitPriceCents = *req.UnitPriceCents
	}
	if req.QtyInStock != nil {
		next.QtyInStock = *req.QtyInStock
	}
	if req.Details != nil {
		next.Details = strings.TrimSpace(*req.Details)
	}

	updated, err := s.repo.UpdateProduct(ctx, next)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, sku int64) error {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, sku)
}

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *Service) RegisterClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return domain.Client{}, store.ErrInvalidInput
	}
	if req.Tier == "" {
		req.Tier = domain.TierRegular
	}
	if !req.Tier.Valid() {
		return domain.Client{}, store.ErrInvalidInput
	}

	created, err := s.repo.RegisterClient(ctx, domain.Client{
		FullName: req.FullName,
		Contact:  strings.TrimSpace(req.Contact),
		Email:    strings.TrimSpace(req.Email),
		Tier:     req.Tier,
	})
	if err != nil {
		return domain.Client{}, err
	}
	return *created, nil
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required", role)
	}
	return nil
}
