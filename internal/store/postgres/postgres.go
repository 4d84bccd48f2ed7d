// Package postgres implements the repository on PostgreSQL through the pgx
// stdlib driver. Multi-entity writes (checkout, refunds, stock movements) run
// in serializable transactions with FOR UPDATE row locks; serialization
// failures surface as store.ErrConflict so the service layer can retry.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
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

const productColumns = `id, name, description, category_id, supplier_id, sku, barcode,
	cost_price, selling_price, stock_quantity, minimum_stock,
	active, deleted, deleted_at, deleted_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var supplierID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &supplierID, &p.SKU, &p.Barcode,
		&p.CostPrice, &p.SellingPrice, &p.StockQuantity, &p.MinimumStock,
		&p.Active, &p.Deleted, &deletedAt, &p.DeletedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if supplierID.Valid {
		p.SupplierID = supplierID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		p.DeletedAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, category.ID, category.Name, category.Description, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: category name already exists", store.ErrInvalidInput)
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, email, phone, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, supplier.ID, supplier.Name, supplier.ContactPerson, supplier.Email, supplier.Phone,
		supplier.Address, supplier.CreatedAt, supplier.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_person, email, phone, address, created_at, updated_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Email, &sup.Phone,
			&sup.Address, &sup.CreatedAt, &sup.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, email, phone, address, created_at, updated_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Email, &sup.Phone,
		&sup.Address, &sup.CreatedAt, &sup.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sup, nil
}

// CreateProduct writes the product row and, when a seed movement is given,
// the opening IN ledger entry in one transaction. The stored stock quantity
// comes from the seed, so there is no window where the product exists with
// stock the ledger cannot explain.
func (s *Store) CreateProduct(ctx context.Context, product domain.Product, seed *domain.StockMovement) (*domain.Product, error) {
	product.StockQuantity = 0
	if seed != nil {
		product.StockQuantity = seed.Quantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category_id, supplier_id, sku, barcode,
			cost_price, selling_price, stock_quantity, minimum_stock,
			active, deleted, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,false,'',$13,$14)
	`, product.ID, product.Name, product.Description, product.CategoryID, nullString(product.SupplierID),
		product.SKU, product.Barcode, product.CostPrice, product.SellingPrice,
		product.StockQuantity, product.MinimumStock, product.Active,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku already exists", store.ErrInvalidInput)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: unknown category or supplier", store.ErrInvalidInput)
		}
		return nil, err
	}
	if seed != nil {
		if err := insertMovement(ctx, tx, *seed); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// Stock is owned by the movement ledger and checkout, never by updates.
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, supplier_id = $5, barcode = $6,
			cost_price = $7, selling_price = $8, minimum_stock = $9, active = $10, updated_at = $11
		WHERE id = $1 AND deleted = false
		RETURNING `+productColumns+`
	`, product.ID, product.Name, product.Description, product.CategoryID, nullString(product.SupplierID),
		product.Barcode, product.CostPrice, product.SellingPrice, product.MinimumStock,
		product.Active, product.UpdatedAt)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListActiveProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	where := []string{"deleted = false", "active = true"}
	args := make([]any, 0, 2)

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d OR barcode ILIKE $%d)", n, n, n))
	}
	if filter.LowStock {
		where = append(where, "stock_quantity <= minimum_stock")
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY name`
	return s.queryProducts(ctx, query, args...)
}

func (s *Store) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE deleted = false ORDER BY name`)
}

func (s *Store) ListDeletedProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE deleted = true ORDER BY name`)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) CountProductsInCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	return count, err
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id string, deletedBy string, at time.Time) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET deleted = true, deleted_at = $2, deleted_by = $3, active = false, updated_at = $2
		WHERE id = $1 AND deleted = false
		RETURNING `+productColumns+`
	`, id, at, deletedBy)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) RestoreProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET deleted = false, deleted_at = NULL, deleted_by = '', active = true, updated_at = now()
		WHERE id = $1 AND deleted = true
		RETURNING `+productColumns+`
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) HardDeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND deleted = true`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product is referenced by sales or movements", store.ErrInvalidInput)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var deleted bool
		err := s.db.QueryRowContext(ctx, `SELECT deleted FROM products WHERE id = $1`, id).Scan(&deleted)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: product must be archived before permanent delete", store.ErrInvalidInput)
	}
	return nil
}

func (s *Store) ApplyMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, *domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, movement.ProductID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, wrapTxErr(err)
	}

	next := p.StockQuantity
	switch movement.Kind {
	case domain.MovementIn, domain.MovementReturn:
		next = p.StockQuantity + movement.Quantity
	case domain.MovementOut:
		if movement.Quantity > p.StockQuantity {
			return nil, nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   movement.Quantity,
				Available:   p.StockQuantity,
			}
		}
		next = p.StockQuantity - movement.Quantity
	case domain.MovementAdjustment:
		next = movement.Quantity
	case domain.MovementSale:
		// Audit entry only. Checkout already moved the stock.
	default:
		return nil, nil, fmt.Errorf("%w: unknown movement kind %q", store.ErrInvalidInput, movement.Kind)
	}
	if next > domain.MaxStockQuantity {
		return nil, nil, fmt.Errorf("%w: stock would exceed %d", store.ErrInvalidInput, domain.MaxStockQuantity)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = $2, updated_at = $3 WHERE id = $1
	`, p.ID, next, movement.CreatedAt); err != nil {
		return nil, nil, wrapTxErr(err)
	}
	if err := insertMovement(ctx, tx, movement); err != nil {
		return nil, nil, wrapTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, wrapTxErr(err)
	}

	p.StockQuantity = next
	p.UpdatedAt = movement.CreatedAt
	outMove := movement
	return &outMove, p, nil
}

func insertMovement(ctx context.Context, tx *sql.Tx, m domain.StockMovement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, kind, quantity, reason, reference, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ID, m.ProductID, m.Kind, m.Quantity, m.Reason, m.Reference, m.CreatedBy, m.CreatedAt)
	return err
}

// ListMovements returns movements newest first. A limit below 1 means no
// limit; reconciliation replays the full history.
func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	where := ""
	args := make([]any, 0, 2)
	if productID != "" {
		args = append(args, productID)
		where = "WHERE product_id = $1"
	}
	limitClause := ""
	if limit > 0 {
		args = append(args, limit)
		limitClause = fmt.Sprintf("LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, kind, quantity, reason, reference, created_by, created_at
		FROM stock_movements
		`+where+`
		ORDER BY created_at DESC, id DESC
		`+limitClause+`
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, 64)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.Reason, &m.Reference, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) AddCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	var stock int
	var active, deleted bool
	err = tx.QueryRowContext(ctx, `
		SELECT name, stock_quantity, active, deleted FROM products WHERE id = $1 FOR UPDATE
	`, item.ProductID).Scan(&name, &stock, &active, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapTxErr(err)
	}
	if !active || deleted {
		return nil, store.ErrNotFound
	}

	combined := item.Quantity
	var existingID string
	var existingQty int
	err = tx.QueryRowContext(ctx, `
		SELECT id, quantity FROM cart_items WHERE username = $1 AND product_id = $2 FOR UPDATE
	`, item.Username, item.ProductID).Scan(&existingID, &existingQty)
	switch {
	case err == nil:
		combined += existingQty
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, wrapTxErr(err)
	}

	if combined > stock {
		return nil, &domain.InsufficientStockError{
			ProductID:   item.ProductID,
			ProductName: name,
			Requested:   combined,
			Available:   stock,
		}
	}

	result := item
	if existingID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = $2 WHERE id = $1
		`, existingID, combined); err != nil {
			return nil, wrapTxErr(err)
		}
		result.ID = existingID
		result.Quantity = combined
	} else {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, username, product_id, quantity, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, item.ID, item.Username, item.ProductID, item.Quantity, item.CreatedAt); err != nil {
			return nil, wrapTxErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTxErr(err)
	}
	return &result, nil
}

func (s *Store) GetCartItem(ctx context.Context, username string, cartItemID string) (*domain.CartItem, error) {
	var ci domain.CartItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, product_id, quantity, created_at
		FROM cart_items
		WHERE id = $1 AND username = $2
	`, cartItemID, username).Scan(&ci.ID, &ci.Username, &ci.ProductID, &ci.Quantity, &ci.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ci, nil
}

func (s *Store) ListCartItems(ctx context.Context, username string) ([]domain.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, product_id, quantity, created_at
		FROM cart_items
		WHERE username = $1
		ORDER BY created_at, id
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0, 8)
	for rows.Next() {
		var ci domain.CartItem
		if err := rows.Scan(&ci.ID, &ci.Username, &ci.ProductID, &ci.Quantity, &ci.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	return items, rows.Err()
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, username string, cartItemID string, quantity int) (*domain.CartItem, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var ci domain.CartItem
	err = tx.QueryRowContext(ctx, `
		SELECT id, username, product_id, quantity, created_at
		FROM cart_items
		WHERE id = $1 AND username = $2
		FOR UPDATE
	`, cartItemID, username).Scan(&ci.ID, &ci.Username, &ci.ProductID, &ci.Quantity, &ci.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapTxErr(err)
	}

	var name string
	var stock int
	var active, deleted bool
	err = tx.QueryRowContext(ctx, `
		SELECT name, stock_quantity, active, deleted FROM products WHERE id = $1 FOR UPDATE
	`, ci.ProductID).Scan(&name, &stock, &active, &deleted)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	if !active || deleted {
		return nil, store.ErrNotFound
	}
	if quantity > stock {
		return nil, &domain.InsufficientStockError{
			ProductID:   ci.ProductID,
			ProductName: name,
			Requested:   quantity,
			Available:   stock,
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, ci.ID, quantity); err != nil {
		return nil, wrapTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapTxErr(err)
	}
	ci.Quantity = quantity
	return &ci, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, username string, cartItemID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND username = $2
	`, cartItemID, username)
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

func (s *Store) ClearCart(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE username = $1`, username)
	return err
}

// Checkout converts the cashier's cart into a completed sale. Cart load,
// stock validation, sale-number allocation, inserts, stock decrements, and
// the cart wipe all happen inside one serializable transaction.
func (s *Store) Checkout(ctx context.Context, params domain.CheckoutParams) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := queryCartLocked(ctx, tx, params.Cashier)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	productIDs := make([]string, 0, len(cart))
	for _, ci := range cart {
		productIDs = append(productIDs, ci.ProductID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, sku, selling_price, stock_quantity, active, deleted
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	type productState struct {
		name    string
		sku     string
		price   decimal.Decimal
		stock   int
		allowed bool
	}
	products := make(map[string]productState, len(cart))
	for rows.Next() {
		var id string
		var st productState
		var active, deleted bool
		if err := rows.Scan(&id, &st.name, &st.sku, &st.price, &st.stock, &active, &deleted); err != nil {
			_ = rows.Close()
			return nil, err
		}
		st.allowed = active && !deleted
		products[id] = st
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, wrapTxErr(err)
	}
	_ = rows.Close()

	subtotal := decimal.Zero
	for _, ci := range cart {
		st, ok := products[ci.ProductID]
		if !ok || !st.allowed {
			return nil, store.ErrNotFound
		}
		if ci.Quantity > st.stock {
			return nil, &domain.InsufficientStockError{
				ProductID:   ci.ProductID,
				ProductName: st.name,
				Requested:   ci.Quantity,
				Available:   st.stock,
			}
		}
		subtotal = subtotal.Add(domain.Money(st.price.Mul(decimal.NewFromInt(int64(ci.Quantity)))))
	}

	tax := domain.TaxOn(subtotal)
	total := subtotal.Add(tax)

	paid := params.AmountPaid
	change := decimal.Zero
	if params.PaymentMethod == domain.PaymentCash {
		if paid.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidPaymentAmount
		}
		if paid.LessThan(total) {
			return nil, &domain.InsufficientPaymentError{Total: total, AmountPaid: paid}
		}
		change = domain.Money(paid.Sub(total))
	} else {
		paid = total
	}

	var counter int64
	if err := tx.QueryRowContext(ctx, `
		UPDATE sale_counters SET last_number = last_number + 1 WHERE id = 1 RETURNING last_number
	`).Scan(&counter); err != nil {
		return nil, wrapTxErr(err)
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:             uuid.NewString(),
		SaleNumber:     domain.FormatSaleNumber(counter),
		Cashier:        params.Cashier,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: decimal.Zero,
		TotalAmount:    total,
		PaymentMethod:  params.PaymentMethod,
		AmountPaid:     paid,
		ChangeAmount:   change,
		Status:         domain.SaleCompleted,
		Notes:          params.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, cashier, subtotal, tax_amount, discount_amount,
			total_amount, payment_method, amount_paid, change_amount, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, sale.ID, sale.SaleNumber, sale.Cashier, sale.Subtotal, sale.TaxAmount, sale.DiscountAmount,
		sale.TotalAmount, sale.PaymentMethod, sale.AmountPaid, sale.ChangeAmount,
		sale.Status, sale.Notes, sale.CreatedAt, sale.UpdatedAt); err != nil {
		return nil, wrapTxErr(err)
	}

	items := make([]domain.SaleItem, 0, len(cart))
	for _, ci := range cart {
		st := products[ci.ProductID]
		item := domain.SaleItem{
			ID:          uuid.NewString(),
			SaleID:      sale.ID,
			ProductID:   ci.ProductID,
			ProductName: st.name,
			SKU:         st.sku,
			Quantity:    ci.Quantity,
			UnitPrice:   st.price,
			Discount:    decimal.Zero,
			LineTotal:   domain.Money(st.price.Mul(decimal.NewFromInt(int64(ci.Quantity)))),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, sku, quantity, unit_price, discount, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, item.ID, item.SaleID, item.ProductID, item.ProductName, item.SKU,
			item.Quantity, item.UnitPrice, item.Discount, item.LineTotal); err != nil {
			return nil, wrapTxErr(err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = $3 WHERE id = $1
		`, ci.ProductID, ci.Quantity, now); err != nil {
			return nil, wrapTxErr(err)
		}
		if err := insertMovement(ctx, tx, domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: ci.ProductID,
			Kind:      domain.MovementSale,
			Quantity:  ci.Quantity,
			Reason:    "sale",
			Reference: sale.SaleNumber,
			CreatedBy: params.Cashier,
			CreatedAt: now,
		}); err != nil {
			return nil, wrapTxErr(err)
		}
		items = append(items, item)
	}

	payment := domain.PaymentRecord{
		ID:        uuid.NewString(),
		SaleID:    sale.ID,
		Method:    params.PaymentMethod,
		Amount:    paid,
		Reference: sale.SaleNumber,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payment_records (id, sale_id, method, amount, reference, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.SaleID, payment.Method, payment.Amount, payment.Reference, payment.CreatedAt); err != nil {
		return nil, wrapTxErr(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE username = $1`, params.Cashier); err != nil {
		return nil, wrapTxErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTxErr(err)
	}

	sale.Items = items
	sale.Payments = []domain.PaymentRecord{payment}
	return &sale, nil
}

func queryCartLocked(ctx context.Context, tx *sql.Tx, username string) ([]domain.CartItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, username, product_id, quantity, created_at
		FROM cart_items
		WHERE username = $1
		ORDER BY created_at, id
		FOR UPDATE
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0, 8)
	for rows.Next() {
		var ci domain.CartItem
		if err := rows.Scan(&ci.ID, &ci.Username, &ci.ProductID, &ci.Quantity, &ci.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	return items, rows.Err()
}

const saleColumns = `id, sale_number, cashier, subtotal, tax_amount, discount_amount,
	total_amount, payment_method, amount_paid, change_amount, status, notes, created_at, updated_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.Cashier, &sale.Subtotal, &sale.TaxAmount,
		&sale.DiscountAmount, &sale.TotalAmount, &sale.PaymentMethod, &sale.AmountPaid,
		&sale.ChangeAmount, &sale.Status, &sale.Notes, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	return s.loadSale(ctx, row)
}

func (s *Store) GetSaleByNumber(ctx context.Context, saleNumber string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE sale_number = $1`, saleNumber)
	return s.loadSale(ctx, row)
}

func (s *Store) loadSale(ctx context.Context, row rowScanner) (*domain.Sale, error) {
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, sku, quantity, unit_price, discount, line_total
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.Discount, &item.LineTotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	payRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, method, amount, reference, created_at
		FROM payment_records
		WHERE sale_id = $1
		ORDER BY created_at
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var payment domain.PaymentRecord
		if err := payRows.Scan(&payment.ID, &payment.SaleID, &payment.Method, &payment.Amount,
			&payment.Reference, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payment.CreatedAt = payment.CreatedAt.UTC()
		sale.Payments = append(sale.Payments, payment)
	}
	return sale, payRows.Err()
}

func (s *Store) ListSales(ctx context.Context, query domain.SalesQuery) ([]domain.Sale, error) {
	where := []string{"1=1"}
	args := make([]any, 0, 4)

	if query.Cashier != "" {
		args = append(args, query.Cashier)
		where = append(where, fmt.Sprintf("cashier = $%d", len(args)))
	}
	if query.Day != "" {
		args = append(args, query.Day)
		where = append(where, fmt.Sprintf("(created_at AT TIME ZONE 'UTC')::date = $%d::date", len(args)))
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(sale_number ILIKE $%d OR cashier ILIKE $%d)", n, n))
	}

	limit := query.Limit
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit)
	limitArg := len(args)
	args = append(args, query.Offset)
	offsetArg := len(args)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(limitArg)+` OFFSET $`+fmt.Sprint(offsetArg)+`
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

func (s *Store) GetDailySummary(ctx context.Context, day time.Time) (*domain.SalesSummary, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	summary := domain.SalesSummary{Date: start.Format("2006-01-02")}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(tax_amount), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2 AND status IN ($3, $4)
	`, start, end, domain.SaleCompleted, domain.SaleRefunded).
		Scan(&summary.SaleCount, &summary.GrossRevenue, &summary.TaxCollected)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM refunds
		WHERE created_at >= $1 AND created_at < $2
	`, start, end).Scan(&summary.RefundedAmount)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateRefund checks the refundable quantity, records the refund, restores
// stock with a RETURN movement, and flips the sale to REFUNDED once every
// item is fully returned. All inside one serializable transaction.
func (s *Store) CreateRefund(ctx context.Context, refund domain.Refund) (*domain.Refund, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var saleID, productID, saleNumber, status string
	var itemQty int
	var lineTotal decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT si.sale_id, si.product_id, si.quantity, si.line_total, sa.sale_number, sa.status
		FROM sale_items si
		JOIN sales sa ON sa.id = si.sale_id
		WHERE si.id = $1
		FOR UPDATE OF sa
	`, refund.SaleItemID).Scan(&saleID, &productID, &itemQty, &lineTotal, &saleNumber, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapTxErr(err)
	}
	if status != domain.SaleCompleted && status != domain.SaleRefunded {
		return nil, fmt.Errorf("%w: sale is %s", store.ErrInvalidInput, status)
	}

	var already int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM refunds WHERE sale_item_id = $1
	`, refund.SaleItemID).Scan(&already); err != nil {
		return nil, wrapTxErr(err)
	}
	remaining := itemQty - already
	if refund.Quantity > remaining {
		return nil, &domain.InvalidQuantityError{Requested: refund.Quantity, Remaining: remaining}
	}

	perUnit := lineTotal.Div(decimal.NewFromInt(int64(itemQty)))
	now := time.Now().UTC()
	refund.SaleID = saleID
	refund.Amount = domain.Money(perUnit.Mul(decimal.NewFromInt(int64(refund.Quantity))))
	refund.CreatedAt = now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO refunds (id, sale_id, sale_item_id, quantity, amount, reason, notes, processed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, refund.ID, refund.SaleID, refund.SaleItemID, refund.Quantity, refund.Amount,
		refund.Reason, refund.Notes, refund.ProcessedBy, refund.CreatedAt); err != nil {
		return nil, wrapTxErr(err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE id = $1
	`, productID, refund.Quantity, now); err != nil {
		return nil, wrapTxErr(err)
	}

	if err := insertMovement(ctx, tx, domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: productID,
		Kind:      domain.MovementReturn,
		Quantity:  refund.Quantity,
		Reason:    refund.Reason,
		Reference: saleNumber,
		CreatedBy: refund.ProcessedBy,
		CreatedAt: now,
	}); err != nil {
		return nil, wrapTxErr(err)
	}

	var outstanding bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM sale_items si
			LEFT JOIN (
				SELECT sale_item_id, SUM(quantity) AS refunded
				FROM refunds
				WHERE sale_id = $1
				GROUP BY sale_item_id
			) r ON r.sale_item_id = si.id
			WHERE si.sale_id = $1 AND COALESCE(r.refunded, 0) < si.quantity
		)
	`, saleID).Scan(&outstanding); err != nil {
		return nil, wrapTxErr(err)
	}
	if !outstanding {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1
		`, saleID, domain.SaleRefunded, now); err != nil {
			return nil, wrapTxErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapTxErr(err)
	}

	created := refund
	return &created, nil
}

func (s *Store) ListRefunds(ctx context.Context, saleID string) ([]domain.Refund, error) {
	where := ""
	args := make([]any, 0, 1)
	if saleID != "" {
		args = append(args, saleID)
		where = "WHERE sale_id = $1"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, sale_item_id, quantity, amount, reason, notes, processed_by, created_at
		FROM refunds
		`+where+`
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := make([]domain.Refund, 0, 16)
	for rows.Next() {
		var r domain.Refund
		if err := rows.Scan(&r.ID, &r.SaleID, &r.SaleItemID, &r.Quantity, &r.Amount,
			&r.Reason, &r.Notes, &r.ProcessedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

func (s *Store) GetInventoryValue(ctx context.Context) (*domain.InventoryValue, error) {
	var value domain.InventoryValue
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(stock_quantity), 0),
			COALESCE(SUM(cost_price * stock_quantity), 0),
			COALESCE(SUM(selling_price * stock_quantity), 0)
		FROM products
		WHERE deleted = false
	`).Scan(&value.ProductCount, &value.TotalUnits, &value.TotalCost, &value.TotalRetail)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_accounts (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username already exists", store.ErrInvalidInput)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM user_accounts
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_accounts SET password = $2 WHERE username = $1
	`, username, password)
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
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// wrapTxErr maps serialization failures and deadlocks to store.ErrConflict
// so callers can retry the whole transaction.
func wrapTxErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Code)
	}
	return err
}
