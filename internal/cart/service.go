package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
	"github.com/noah-isme/kopi-pos/internal/voucher"
)

// ProductReader returns catalog products for display snapshots.
type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
}

// DiscountResolver picks the single discount applying to a cart.
type DiscountResolver interface {
	Resolve(ctx context.Context, in voucher.Input) (*pricing.Discount, error)
}

// TaxRater reports the active tax rate.
type TaxRater interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store     *Store
	Catalog   ProductReader
	Discounts DiscountResolver
	Tax       TaxRater
}

// Quote is a cart together with its current price breakdown.
type Quote struct {
	Cart     *Cart           `json:"cart"`
	Summary  pricing.Summary `json:"summary"`
	TaxLabel string          `json:"taxLabel"`
}

// Create starts a cart, attaching the new member promotion when eligible.
func (s *Service) Create(ctx context.Context, customerID *uuid.UUID) (Quote, error) {
	c := New(customerID)
	if err := s.refresh(ctx, c); err != nil {
		return Quote{}, err
	}
	return s.save(ctx, c)
}

// Get returns the priced cart.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, c)
}

// Load returns the raw cart for checkout.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (*Cart, error) {
	return s.load(ctx, id)
}

// AddItem snapshots the product name and price and adds qty of it.
func (s *Service) AddItem(ctx context.Context, id, productID uuid.UUID, qty int) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	p, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}
	if !p.IsAvailable {
		return Quote{}, common.ValidationError("PRODUCT_UNAVAILABLE", "product unavailable", nil).
			WithDetails(map[string]any{"productId": productID})
	}
	if err := c.Add(Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: qty}); err != nil {
		return Quote{}, common.ValidationError("INVALID_QUANTITY", err.Error(), err)
	}
	return s.mutate(ctx, c)
}

// UpdateItem sets a line quantity. Zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, id, productID uuid.UUID, qty int) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if err := c.UpdateQuantity(productID, qty); err != nil {
		return Quote{}, itemNotFound(err)
	}
	return s.mutate(ctx, c)
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, id, productID uuid.UUID) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if !c.Remove(productID) {
		return Quote{}, itemNotFound(ErrItemNotFound)
	}
	return s.mutate(ctx, c)
}

// ApplyVoucher validates code against the cart and attaches it, replacing
// whatever discount was active. A rejected code leaves the cart unchanged.
func (s *Service) ApplyVoucher(ctx context.Context, id uuid.UUID, code string) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	subtotal, err := c.Subtotal()
	if err != nil {
		return Quote{}, err
	}
	d, err := s.Discounts.Resolve(ctx, voucher.Input{Subtotal: subtotal, CustomerID: c.CustomerID, VoucherCode: code})
	if err != nil {
		return Quote{}, voucher.AsAppError(err)
	}
	c.SetDiscount(d)
	c.VoucherCode = voucher.NormalizeCode(code)
	c.VoucherError = ""
	return s.save(ctx, c)
}

// RemoveVoucher detaches the voucher and re-evaluates the automatic promotion.
func (s *Service) RemoveVoucher(ctx context.Context, id uuid.UUID) (Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	c.ClearDiscount()
	return s.mutate(ctx, c)
}

// Delete discards the cart after checkout.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.Store.Delete(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Cart, error) {
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, common.NotFoundError("CART_NOT_FOUND", "cart not found", err)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) mutate(ctx context.Context, c *Cart) (Quote, error) {
	if err := s.refresh(ctx, c); err != nil {
		return Quote{}, err
	}
	return s.save(ctx, c)
}

// refresh recomputes the discount for the current subtotal. A voucher that no
// longer qualifies stays on the cart with its error so checkout rejects it
// explicitly rather than silently charging more.
func (s *Service) refresh(ctx context.Context, c *Cart) error {
	if s.Discounts == nil {
		return nil
	}
	subtotal, err := c.Subtotal()
	if err != nil {
		return err
	}
	d, err := s.Discounts.Resolve(ctx, voucher.Input{Subtotal: subtotal, CustomerID: c.CustomerID, VoucherCode: c.VoucherCode})
	if err != nil {
		var appErr *common.AppError
		if !errors.As(voucher.AsAppError(err), &appErr) || appErr.Kind != common.KindValidation {
			return err
		}
		c.SetDiscount(nil)
		c.VoucherError = appErr.Message
		return nil
	}
	c.SetDiscount(d)
	c.VoucherError = ""
	return nil
}

func (s *Service) save(ctx context.Context, c *Cart) (Quote, error) {
	if err := s.Store.Save(ctx, c); err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, c)
}

func (s *Service) quote(ctx context.Context, c *Cart) (Quote, error) {
	rate := pricing.DefaultTaxRate
	if s.Tax != nil {
		r, err := s.Tax.TaxRate(ctx)
		if err != nil {
			return Quote{}, fmt.Errorf("tax rate: %w", err)
		}
		rate = r
	}
	summary, err := c.Price(rate)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Cart: c, Summary: summary, TaxLabel: pricing.TaxLabel(rate)}, nil
}

func itemNotFound(err error) error {
	return common.NotFoundError("CART_ITEM_NOT_FOUND", "item not in cart", err)
}
