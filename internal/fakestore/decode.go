package fakestore

import (
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Decode parses a product listing. Two shapes are accepted: a bare array of
// products, or an object {"products": [...], "totalPages": N}.
func Decode(data []byte) (*product.Page, error) {
	return decodePage(data)
}

func decodePage(data []byte) (*product.Page, error) {
	d := jx.DecodeBytes(data)

	var page product.Page
	switch tt := d.Next(); tt {
	case jx.Array:
		items, err := decodeProducts(d)
		if err != nil {
			return nil, err
		}
		page.Products = items
	case jx.Object:
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "products":
				items, err := decodeProducts(d)
				if err != nil {
					return errors.Wrap(err, "products")
				}
				page.Products = items
			case "totalPages":
				n, err := d.Int()
				if err != nil {
					return errors.Wrap(err, "totalPages")
				}
				if n < 0 {
					return errors.Errorf("totalPages: negative value %d", n)
				}
				page.TotalPages = n
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unexpected json %s", tt)
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected trailing data")
	}

	if page.Products == nil {
		page.Products = []product.Product{}
	}
	return &page, nil
}

func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	items := []product.Product{}
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(items))
		}
		items = append(items, p)
		return nil
	})
	return items, err
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p      product.Product
		hasID  bool
		hasPrc bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeID(d)
			hasID = err == nil
		case "title":
			p.Title, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
			hasPrc = err == nil
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return product.Product{}, err
	}

	if !hasID || p.ID == "" {
		return product.Product{}, errors.New("missing id")
	}
	if !hasPrc {
		return product.Product{}, errors.Errorf("product %s: missing price", p.ID)
	}
	return p, nil
}

// decodeID accepts numeric or string ids. Numbers keep their decimal text.
func decodeID(d *jx.Decoder) (string, error) {
	if d.Next() == jx.String {
		return d.Str()
	}
	n, err := d.Num()
	if err != nil {
		return "", err
	}
	if !n.IsInt() {
		return "", errors.Errorf("non-integer id %s", n)
	}
	v, err := n.Int64()
	if err != nil {
		return "", err
	}
	return decimal.NewFromInt(v).String(), nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if v.IsNegative() {
		return decimal.Decimal{}, errors.Errorf("negative price %s", v)
	}
	return v, nil
}
