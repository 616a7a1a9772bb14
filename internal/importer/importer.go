package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/remote"
)

// ProductWriter creates one product on behalf of a seller session.
type ProductWriter interface {
	Create(ctx context.Context, sess domain.Session, in domain.ProductInput) (remote.Result, error)
}

// CSVImporter reads a product sheet and creates every product it lists.
// Columns: name, description, price, category, stockQuantity, imageURLs, tags.
// List cells are separated by ';'. A row with no name only carries extra
// image URLs for the product above it.
type CSVImporter struct {
	reader *csv.Reader
	writer ProductWriter
	sess   domain.Session
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, writer ProductWriter, sess domain.Session, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{reader: csvr, writer: writer, sess: sess, logger: logger}
}

type csvRow struct {
	line  int
	input domain.ProductInput
}

// Run creates the products in file order and stops at the first failure.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return 0, errors.New("missing required column \"name\"")
	}
	if _, ok := index["price"]; !ok {
		return 0, errors.New("missing required column \"price\"")
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.input.Name != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		if current != nil {
			current.input.ImageURLs = append(current.input.ImageURLs, row.input.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	i.logger.Info("product import finished", zap.Int("imported", imported))
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	res, err := i.writer.Create(ctx, i.sess, row.input)
	if err != nil {
		return fmt.Errorf("create product %q (row %d): %w", row.input.Name, row.line, err)
	}
	fields := []zap.Field{zap.String("name", row.input.Name), zap.Int("row", row.line)}
	if res.Product != nil {
		fields = append(fields, zap.String("product_id", res.Product.ID))
	}
	i.logger.Debug("product imported", fields...)
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	name := pick(record, index, "name")
	images := splitList(pick(record, index, "imageURLs"))
	if name == "" {
		if len(images) == 0 {
			return nil, nil
		}
		return &csvRow{line: line, input: domain.ProductInput{ImageURLs: images}}, nil
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("row %d: invalid price: %w", line, err)
	}
	stock := 0
	if s := pick(record, index, "stockQuantity"); s != "" {
		stock, err = strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid stockQuantity %q", line, s)
		}
	}

	return &csvRow{line: line, input: domain.ProductInput{
		Name:          name,
		Description:   pick(record, index, "description"),
		Price:         price,
		Category:      pick(record, index, "category"),
		StockQuantity: stock,
		ImageURLs:     images,
		Tags:          splitList(pick(record, index, "tags")),
	}}, nil
}

func splitList(cell string) []string {
	var out []string
	for _, v := range strings.Split(cell, ";") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
