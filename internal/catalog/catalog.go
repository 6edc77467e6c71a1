// Package catalog supplies the extraction targets and the field display
// configuration. The catalog is a YAML file checked in next to the binary;
// nothing here is mutable at run time.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mkraskou/bankbench/internal/harvest"
	"github.com/mkraskou/bankbench/internal/pipeline"
	"github.com/mkraskou/bankbench/internal/reduce"
	"github.com/mkraskou/bankbench/internal/schema"
)

// FieldCaptions maps schema keys to the report's Russian row captions.
var FieldCaptions = map[string]string{
	"name":            "Наименование",
	"rate":            "% Ставка",
	"rate_type":       "Тип ставки",
	"sum":             "Сумма",
	"term":            "Срок",
	"payment_type":    "Тип платежа",
	"commission":      "Комиссии",
	"early_repayment": "Досрочное погашение",
	"insurance":       "Страхование",
	"currency":        "Валюта",
	"additional":      "Дополнительно",
	"files":           "Файлы",
}

// Caption returns the display name for a schema key, falling back to the key
// itself for unknown fields.
func Caption(field string) string {
	if c, ok := FieldCaptions[field]; ok {
		return c
	}
	return field
}

// Bank is one source site.
type Bank struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Product is one extractable offer on a bank's site.
type Product struct {
	Bank string `yaml:"bank"` // bank id
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Catalog is the full selection universe for a deployment.
type Catalog struct {
	Banks    []Bank    `yaml:"banks"`
	Products []Product `yaml:"products"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	ids := make(map[string]struct{}, len(c.Banks))
	for _, b := range c.Banks {
		if b.ID == "" || b.Name == "" {
			return fmt.Errorf("catalog: bank entry missing id or name")
		}
		if _, dup := ids[b.ID]; dup {
			return fmt.Errorf("catalog: duplicate bank id %q", b.ID)
		}
		ids[b.ID] = struct{}{}
	}
	for _, p := range c.Products {
		if p.Name == "" || p.URL == "" {
			return fmt.Errorf("catalog: product entry missing name or url")
		}
		if _, ok := ids[p.Bank]; !ok {
			return fmt.Errorf("catalog: product %q references unknown bank %q", p.Name, p.Bank)
		}
	}
	return nil
}

func (c *Catalog) bank(id string) (Bank, bool) {
	for _, b := range c.Banks {
		if b.ID == id {
			return b, true
		}
	}
	return Bank{}, false
}

// Targets resolves product names into pipeline targets, preserving catalog
// order. An empty name list selects every product.
func (c *Catalog) Targets(productNames []string) ([]pipeline.Target, error) {
	wanted := make(map[string]struct{}, len(productNames))
	for _, n := range productNames {
		wanted[n] = struct{}{}
	}
	var out []pipeline.Target
	for _, p := range c.Products {
		if len(wanted) > 0 {
			if _, ok := wanted[p.Name]; !ok {
				continue
			}
			delete(wanted, p.Name)
		}
		b, _ := c.bank(p.Bank)
		out = append(out, pipeline.Target{
			Bank:    b.Name,
			BankID:  b.ID,
			Product: p.Name,
			URL:     p.URL,
		})
	}
	if len(wanted) > 0 {
		for n := range wanted {
			return nil, fmt.Errorf("catalog: unknown product %q", n)
		}
	}
	return out, nil
}

// ReduceConfigFor returns the per-bank reduction knobs. Belarusbank pages
// bury the product terms deep, so it gets a larger initial window; the final
// truncation budget is the same for everyone.
func ReduceConfigFor(bankID string) reduce.Config {
	if bankID == harvest.BankBelarusbank {
		return reduce.Config{InitialWindow: 120_000}
	}
	return reduce.Config{}
}

// Fields resolves a characteristic selection into canonical field order.
// An empty selection means all fields.
func Fields(selected []string) []string {
	if len(selected) == 0 {
		return append([]string(nil), schema.FieldKeys...)
	}
	chosen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		chosen[s] = struct{}{}
	}
	var out []string
	for _, k := range schema.FieldKeys {
		if _, ok := chosen[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
