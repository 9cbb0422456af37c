// Package catalog 提供进程内只读的商品目录。
package catalog

import (
	"fmt"

	"github.com/rushteam/shopsense/core"
)

// Catalog 是 product_id → Product 的只读映射，启动时加载一次，并发读无需加锁。
type Catalog struct {
	products map[string]*core.Product
	ids      []string
}

// New 从商品列表构建目录；空 ID 或重复 ID 返回 DATA_INCONSISTENCY。
func New(products []core.Product) (*Catalog, error) {
	c := &Catalog{
		products: make(map[string]*core.Product, len(products)),
		ids:      make([]string, 0, len(products)),
	}
	for i := range products {
		p := products[i]
		if p.ID == "" {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("catalog: empty product id at row %d", i))
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("catalog: duplicate product id %q", p.ID))
		}
		p.Price = core.SanitizePrice(p.Price)
		c.products[p.ID] = &p
		c.ids = append(c.ids, p.ID)
	}
	return c, nil
}

// Get 按 ID 查商品。返回的指针只读，调用方不得修改。
func (c *Catalog) Get(id string) (*core.Product, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.products[id]
	return p, ok
}

// Lookup 与 Get 相同，但未找到时返回 NOT_FOUND 错误。
func (c *Catalog) Lookup(id string) (*core.Product, error) {
	if p, ok := c.Get(id); ok {
		return p, nil
	}
	return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound,
		fmt.Sprintf("catalog: product %q not found", id))
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs 按加载顺序返回全部商品 ID。
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}
