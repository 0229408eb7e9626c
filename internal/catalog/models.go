package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type Category string

const (
	CategoryWaterBase  Category = "WATER BASE"
	CategoryMilkBase   Category = "MILK BASE"
	CategoryFamilyPack Category = "FAMILY PACK"
	CategoryTubs       Category = "4L TUBS"
)

// Categories in display order.
var Categories = []Category{CategoryWaterBase, CategoryMilkBase, CategoryFamilyPack, CategoryTubs}

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidVariety  = errors.New("invalid variety")
	ErrNotFound        = errors.New("variety not found")
)

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Valid() bool {
	return c.rank() >= 0
}

func (c Category) rank() int {
	for i, x := range Categories {
		if x == c {
			return i
		}
	}
	return -1
}

// Variety is a sellable catalog entry. Money is held in minor units.
type Variety struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   Category  `json:"category"`
	Stock      int       `json:"stock"`
	CostCents  int64     `json:"cost_cents"`
	PriceCents int64     `json:"price_cents"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MaxStock is the largest count the stock column holds.
const MaxStock = math.MaxInt32

func (v Variety) Validate() error {
	switch {
	case strings.TrimSpace(v.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidVariety)
	case !v.Category.Valid():
		return fmt.Errorf("%w: %w %q", ErrInvalidVariety, ErrInvalidCategory, v.Category)
	case v.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidVariety)
	case v.Stock > MaxStock:
		return fmt.Errorf("%w: stock must not exceed %d", ErrInvalidVariety, MaxStock)
	case v.CostCents < 0:
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidVariety)
	case v.PriceCents < 0:
		return fmt.Errorf("%w: selling price must not be negative", ErrInvalidVariety)
	}
	return nil
}
