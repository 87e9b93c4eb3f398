// Command seed-db loads catalog, address, and coupon fixtures into
// PostgreSQL and registers an API key, preparing a fresh database for
// local development and integration tests.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Nandusuresh61/fabrico-checkout/internal/repository"
)

type catalogJSON struct {
	Categories []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"categories"`
	Brands []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"brands"`
	Products []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Status     string `json:"status"`
		CategoryID string `json:"category_id"`
		BrandID    string `json:"brand_id"`
	} `json:"products"`
	Variants []struct {
		ID            string           `json:"id"`
		ProductID     string           `json:"product_id"`
		Color         string           `json:"color"`
		Price         decimal.Decimal  `json:"price"`
		DiscountPrice *decimal.Decimal `json:"discount_price"`
		Stock         int              `json:"stock"`
		IsBlocked     bool             `json:"is_blocked"`
	} `json:"variants"`
}

type addressJSON struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Pincode    string `json:"pincode"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"is_default"`
}

type couponJSON struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxOrderAmount decimal.Decimal `json:"max_order_amount"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	Description    string          `json:"description"`
}

func main() {
	var (
		databaseURL  string
		seedDir      string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedDir, "seed-dir", "db/seed", "directory holding the seed JSON files")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or FABRICO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FABRICO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("FABRICO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or FABRICO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FABRICO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedDir, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedDir, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, seedDir+"/catalog.json"); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedAddresses(ctx, pool, seedDir+"/addresses.json"); err != nil {
		return errors.Wrap(err, "seed addresses")
	}
	if err := seedCoupons(ctx, pool, seedDir+"/coupons.json"); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedCarts(ctx, pool, seedDir+"/carts.json"); err != nil {
		return errors.Wrap(err, "seed carts")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "parse JSON")
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("seeding catalog", slog.String("path", path))

	var cat catalogJSON
	if err := readJSON(path, &cat); err != nil {
		return err
	}

	for _, c := range cat.Categories {
		_, err := pool.Exec(ctx,
			`INSERT INTO categories (id, name, status) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = $2, status = $3`,
			c.ID, c.Name, c.Status)
		if err != nil {
			return errors.Wrapf(err, "category %q", c.ID)
		}
	}
	for _, b := range cat.Brands {
		_, err := pool.Exec(ctx,
			`INSERT INTO brands (id, name, status) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = $2, status = $3`,
			b.ID, b.Name, b.Status)
		if err != nil {
			return errors.Wrapf(err, "brand %q", b.ID)
		}
	}
	for _, p := range cat.Products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, status, category_id, brand_id) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET name = $2, status = $3, category_id = $4, brand_id = $5`,
			p.ID, p.Name, p.Status, p.CategoryID, p.BrandID)
		if err != nil {
			return errors.Wrapf(err, "product %q", p.ID)
		}
	}
	for _, v := range cat.Variants {
		_, err := pool.Exec(ctx,
			`INSERT INTO variants (id, product_id, color, price, discount_price, stock, is_blocked)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET color = $3, price = $4, discount_price = $5, stock = $6, is_blocked = $7`,
			v.ID, v.ProductID, v.Color, v.Price, v.DiscountPrice, v.Stock, v.IsBlocked)
		if err != nil {
			return errors.Wrapf(err, "variant %q", v.ID)
		}
	}

	slog.Info("catalog seeded",
		slog.Int("products", len(cat.Products)),
		slog.Int("variants", len(cat.Variants)))
	return nil
}

func seedAddresses(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("seeding addresses", slog.String("path", path))

	var addrs []addressJSON
	if err := readJSON(path, &addrs); err != nil {
		return err
	}

	for _, a := range addrs {
		_, err := pool.Exec(ctx,
			`INSERT INTO addresses (id, customer_id, type, name, street, city, state, pincode, phone, is_default)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, a.CustomerID, a.Type, a.Name, a.Street, a.City, a.State, a.Pincode, a.Phone, a.IsDefault)
		if err != nil {
			return errors.Wrapf(err, "address %q", a.ID)
		}
	}

	slog.Info("addresses seeded", slog.Int("count", len(addrs)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("seeding coupons", slog.String("path", path))

	var coupons []couponJSON
	if err := readJSON(path, &coupons); err != nil {
		return err
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx,
			`INSERT INTO coupons (id, code, discount_type, discount_value, min_order_amount, max_order_amount, start_date, end_date, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (code) DO NOTHING`,
			uuid.New().String(), c.Code, c.DiscountType, c.DiscountValue,
			c.MinOrderAmount, c.MaxOrderAmount, c.StartDate, c.EndDate, c.Description)
		if err != nil {
			return errors.Wrapf(err, "coupon %q", c.Code)
		}
	}

	slog.Info("coupons seeded", slog.Int("count", len(coupons)))
	return nil
}

type cartLineJSON struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id"`
	Quantity   int    `json:"quantity"`
}

func seedCarts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("seeding carts", slog.String("path", path))

	var lines []cartLineJSON
	if err := readJSON(path, &lines); err != nil {
		return err
	}

	for _, l := range lines {
		_, err := pool.Exec(ctx,
			`INSERT INTO cart_lines (customer_id, product_id, variant_id, quantity)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (customer_id, variant_id) DO UPDATE SET quantity = $4`,
			l.CustomerID, l.ProductID, l.VariantID, l.Quantity)
		if err != nil {
			return errors.Wrapf(err, "cart line %s/%s", l.CustomerID, l.VariantID)
		}
	}

	slog.Info("carts seeded", slog.Int("count", len(lines)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes, active)
		 VALUES ($1, $2, 'seed', '{checkout}', TRUE)
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("api key seeded")
	return nil
}
