package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables on first boot when AUTO_MIGRATE is set.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS staff_users (
			staff_id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			pass_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'associate',
			display_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			sku BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			qty_in_stock INTEGER NOT NULL DEFAULT 0,
			details TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			client_id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			contact_no TEXT NOT NULL DEFAULT '',
			email_addr TEXT NOT NULL DEFAULT '',
			client_type TEXT NOT NULL DEFAULT 'Regular'
		)`,
		`CREATE TABLE IF NOT EXISTS sales_log (
			sale_id BIGSERIAL PRIMARY KEY,
			staff_id BIGINT NOT NULL REFERENCES staff_users(staff_id),
			client_id BIGINT REFERENCES clients(client_id),
			subtotal_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT 'Cash',
			sale_date TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales_items (
			line_id BIGSERIAL PRIMARY KEY,
			sale_id BIGINT NOT NULL REFERENCES sales_log(sale_id),
			sku BIGINT NOT NULL,
			qty INTEGER NOT NULL,
			item_size TEXT NOT NULL,
			sold_at_price_cents BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_items_sale_id ON sales_items(sale_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, category, unit_price_cents, qty_in_stock, details
		FROM inventory
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.UnitPriceCents, &p.QtyInStock, &p.Details); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, sku int64) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, name, category, unit_price_cents, qty_in_stock, details
		FROM inventory
		WHERE sku = $1
	`, sku).Scan(&product.SKU, &product.Name, &product.Category, &product.UnitPriceCents, &product.QtyInStock, &product.Details)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.UnitPriceCents < 1 || product.QtyInStock < 0 {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory (name, category, unit_price_cents, qty_in_stock, details)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING sku
	`, product.Name, product.Category, product.UnitPriceCents, product.QtyInStock, product.Details).Scan(&product.SKU)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.UnitPriceCents < 1 || product.QtyInStock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = $2, category = $3, unit_price_cents = $4, qty_in_stock = $5, details = $6
		WHERE sku = $1
	`, product.SKU, product.Name, product.Category, product.UnitPriceCents, product.QtyInStock, product.Details)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, sku int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inventory WHERE sku = $1`, sku)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, full_name, contact_no, email_addr, client_type
		FROM clients
		ORDER BY client_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 64)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.FullName, &c.Contact, &c.Email, &c.Tier); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}

func (s *Store) GetClient(ctx context.Context, clientID int64) (*domain.Client, error) {
	var client domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, full_name, contact_no, email_addr, client_type
		FROM clients
		WHERE client_id = $1
	`, clientID).Scan(&client.ID, &client.FullName, &client.Contact, &client.Email, &client.Tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *Store) RegisterClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if strings.TrimSpace(client.FullName) == "" || !client.Tier.Valid() {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO clients (full_name, contact_no, email_addr, client_type)
		VALUES ($1,$2,$3,$4)
		RETURNING client_id
	`, client.FullName, client.Contact, client.Email, client.Tier).Scan(&client.ID)
	if err != nil {
		return nil, err
	}

	created := client
	return &created, nil
}

// CommitSale runs the whole sale as one serializable transaction. Every
// touched inventory row is locked with FOR UPDATE, the stock check runs
// against the locked value, and the unit price is re-read under the same
// lock so the recorded line price can never go stale. Any failure rolls
// the entire unit back, header included.
func (s *Store) CommitSale(ctx context.Context, draft domain.SaleDraft) (int64, error) {
	if len(draft.Lines) == 0 || draft.StaffID < 1 {
		return 0, store.ErrInvalidInput
	}
	for _, line := range draft.Lines {
		if line.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, &store.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = pgTx.Rollback() }()

	var saleID int64
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO sales_log (staff_id, client_id, subtotal_cents, discount_cents, total_cents, payment_method, sale_date)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		RETURNING sale_id
	`, draft.StaffID, draft.ClientID, draft.SubtotalCents, draft.DiscountCents, draft.TotalCents, draft.PaymentMethod).Scan(&saleID)
	if err != nil {
		return 0, &store.StorageError{Op: "insert header", Err: err}
	}

	// Stock is tracked per sku; lines of the same sku in different sizes
	// draw down the same row, so deduct line by line under the row lock.
	for _, line := range draft.Lines {
		var priceCents int64
		var stockQty int
		err := pgTx.QueryRowContext(ctx, `
			SELECT unit_price_cents, qty_in_stock
			FROM inventory
			WHERE sku = $1
			FOR UPDATE
		`, line.Key.SKU).Scan(&priceCents, &stockQty)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, &store.ProductNotFoundError{SKU: line.Key.SKU}
			}
			return 0, &store.StorageError{Op: "read inventory", Err: err}
		}
		if stockQty < line.Qty {
			return 0, &store.InsufficientStockError{SKU: line.Key.SKU, Requested: line.Qty, Available: stockQty}
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE inventory
			SET qty_in_stock = qty_in_stock - $1
			WHERE sku = $2
		`, line.Qty, line.Key.SKU)
		if err != nil {
			return 0, &store.StorageError{Op: "deduct stock", Err: err}
		}

		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO sales_items (sale_id, sku, qty, item_size, sold_at_price_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, saleID, line.Key.SKU, line.Qty, line.Key.Size, priceCents)
		if err != nil {
			return 0, &store.StorageError{Op: "insert line", Err: err}
		}
	}

	if err := pgTx.Commit(); err != nil {
		return 0, &store.StorageError{Op: "commit", Err: err}
	}

	return saleID, nil
}

func (s *Store) GetSaleHeader(ctx context.Context, saleID int64) (*domain.SaleHeaderView, error) {
	var header domain.SaleHeaderView
	var clientID sql.NullInt64
	var clientName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT sl.sale_id, sl.staff_id, COALESCE(su.display_name, su.username, ''),
		       sl.client_id, c.full_name,
		       sl.subtotal_cents, sl.discount_cents, sl.total_cents,
		       sl.payment_method, sl.sale_date
		FROM sales_log sl
		LEFT JOIN staff_users su ON su.staff_id = sl.staff_id
		LEFT JOIN clients c ON c.client_id = sl.client_id
		WHERE sl.sale_id = $1
	`, saleID).Scan(&header.SaleID, &header.StaffID, &header.StaffName,
		&clientID, &clientName,
		&header.SubtotalCents, &header.DiscountCents, &header.TotalCents,
		&header.PaymentMethod, &header.SaleDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if clientID.Valid {
		id := clientID.Int64
		header.ClientID = &id
	}
	header.ClientName = "Walk-in"
	if clientName.Valid && clientName.String != "" {
		header.ClientName = clientName.String
	}
	header.SaleDate = header.SaleDate.UTC()
	return &header, nil
}

func (s *Store) GetSaleItems(ctx context.Context, saleID int64) ([]domain.SaleItemView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT si.line_id, si.sale_id, si.sku, COALESCE(inv.name, 'Unknown Item'),
		       si.qty, si.item_size, si.sold_at_price_cents
		FROM sales_items si
		LEFT JOIN inventory inv ON inv.sku = si.sku
		WHERE si.sale_id = $1
		ORDER BY si.line_id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItemView, 0, 8)
	for rows.Next() {
		var item domain.SaleItemView
		if err := rows.Scan(&item.LineID, &item.SaleID, &item.SKU, &item.Name, &item.Qty, &item.ItemSize, &item.SoldAtPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}

	return items, nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT staff_id, username, pass_hash, role, display_name
		FROM staff_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.StaffAccount, 0, 16)
	for rows.Next() {
		var acct domain.StaffAccount
		if err := rows.Scan(&acct.ID, &acct.Username, &acct.PassHash, &acct.Role, &acct.DisplayName); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (s *Store) GetStaffByUsername(ctx context.Context, username string) (*domain.StaffAccount, error) {
	var acct domain.StaffAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT staff_id, username, pass_hash, role, display_name
		FROM staff_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&acct.ID, &acct.Username, &acct.PassHash, &acct.Role, &acct.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff domain.StaffAccount) error {
	username := strings.ToLower(strings.TrimSpace(staff.Username))
	if username == "" || strings.TrimSpace(staff.PassHash) == "" {
		return store.ErrInvalidInput
	}
	if staff.Role == "" {
		staff.Role = domain.RoleAssociate
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_users (username, pass_hash, role, display_name)
		VALUES ($1,$2,$3,$4)
	`, username, staff.PassHash, staff.Role, staff.DisplayName)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) UpdateStaffPassword(ctx context.Context, username string, passHash string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passHash) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE staff_users
		SET pass_hash = $2
		WHERE username = $1
	`, username, passHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
