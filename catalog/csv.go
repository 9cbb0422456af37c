package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rushteam/shopsense/core"
)

// 目录 CSV 的必需列
const (
	ColumnProductID = "product_id"
	ColumnTitle     = "title"
	ColumnBrand     = "brand"
	ColumnCategory  = "normalized_top_category"
	ColumnPrice     = "price"
)

var requiredColumns = []string{ColumnProductID, ColumnTitle, ColumnBrand, ColumnCategory, ColumnPrice}

// LoadCSV 从文件加载目录。文件不存在或缺少必需列都是启动期致命错误。
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV 解析带表头的目录 CSV。
// 必需列之外的列原样保存到 Product.Attributes；价格无法解析时按 0 处理。
func ReadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataInconsistency, "catalog: empty csv")
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if _, ok := cols[h]; !ok {
			cols[h] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("catalog: missing column %q", name))
		}
	}

	var products []core.Product
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		field := func(name string) string {
			i := cols[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		p := core.Product{
			ID:       field(ColumnProductID),
			Title:    field(ColumnTitle),
			Brand:    field(ColumnBrand),
			Category: field(ColumnCategory),
			Price:    core.ParsePrice(field(ColumnPrice)),
		}
		for i, h := range header {
			if i >= len(rec) || h == "" || isRequired(h) {
				continue
			}
			if p.Attributes == nil {
				p.Attributes = make(map[string]string)
			}
			p.Attributes[h] = rec[i]
		}
		products = append(products, p)
	}
	return New(products)
}

func isRequired(col string) bool {
	for _, c := range requiredColumns {
		if c == col {
			return true
		}
	}
	return false
}
