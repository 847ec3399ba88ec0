// Command seed-catalog snapshots the upstream product API into a JSON file
// usable as the embedded seed catalog.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/fakestore"
)

func main() {
	var (
		baseURL  string
		out      string
		pageSize int
		maxPages int
		timeout  time.Duration
	)

	flag.StringVar(&baseURL, "base-url", fakestore.DefaultBaseURL, "product API base URL")
	flag.StringVar(&out, "out", "internal/seed/products.json", "path to write the products JSON file")
	flag.IntVar(&pageSize, "page-size", 8, "products requested per page")
	flag.IntVar(&maxPages, "max-pages", 50, "stop after this many pages")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := fakestore.New(fakestore.Config{
		BaseURL:  baseURL,
		PageSize: pageSize,
		Timeout:  timeout,
	})
	if err != nil {
		lg.Fatal("Create client", zap.Error(err))
	}

	products, err := collect(ctx, lg, client, maxPages)
	if err != nil {
		lg.Fatal("Collect products", zap.Error(err))
	}
	if err := os.WriteFile(out, encode(products), 0o644); err != nil {
		lg.Fatal("Write products file", zap.Error(err))
	}

	lg.Info("Seed catalog written", zap.String("path", out), zap.Int("count", len(products)))
}

// collect reads pages until the source reports the last one, returns an
// empty page, or maxPages is reached. Products seen on an earlier page are
// skipped.
func collect(ctx context.Context, lg *zap.Logger, src product.Source, maxPages int) ([]product.Product, error) {
	var (
		out  []product.Product
		seen = make(map[string]struct{})
	)
	for page := 1; page <= maxPages; page++ {
		res, err := src.FetchPage(ctx, page)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", page)
		}
		if len(res.Products) == 0 {
			break
		}

		added := 0
		for _, p := range res.Products {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
			added++
		}
		lg.Debug("Fetched page", zap.Int("page", page), zap.Int("added", added))

		// Sources that ignore paging return the same products every time.
		if added == 0 || (res.TotalPages > 0 && page >= res.TotalPages) {
			break
		}
	}
	return out, nil
}

// encode writes products in the upstream array format. Integer ids stay
// numeric.
func encode(products []product.Product) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) {
					if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil {
						e.Int64(n)
						return
					}
					e.Str(p.ID)
				})
				e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
				e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
				e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
				e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
				e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
			})
		}
	})
	return append(e.Bytes(), '\n')
}
