// Package catalog holds the immutable product list served by the store.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"checkout-service/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is safe for concurrent use; it is never mutated after loading.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Products)
}

// New validates products and keeps them in the given order.
func New(products []domain.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, errors.New("catalog is empty")
	}

	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	var errs []error
	for i, p := range products {
		if err := validate(p); err != nil {
			errs = append(errs, fmt.Errorf("product %d (%q): %w", i, p.ID, err))
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			errs = append(errs, fmt.Errorf("product %d: duplicate id %q", i, p.ID))
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func validate(p domain.Product) error {
	switch {
	case p.ID == "":
		return errors.New("id is required")
	case p.Name == "":
		return errors.New("name is required")
	case p.Price <= 0:
		return fmt.Errorf("price must be positive, got %d", p.Price)
	}
	if err := absoluteURL(p.DownloadLink); err != nil {
		return fmt.Errorf("downloadLink: %w", err)
	}
	if err := absoluteURL(p.Image); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

func absoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

// List returns a copy of all products in definition order.
func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Get(id string) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}
