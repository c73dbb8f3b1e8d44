package carrello

import (
	"fmt"
	"io"
	"text/template"

	"github.com/shopspring/decimal"
)

type Row struct {
	LineItem
	LineTotal decimal.Decimal
}

// Projection is the derived, read-only view of a cart.
type Projection struct {
	Rows       []Row
	GrandTotal decimal.Decimal
	ItemCount  int
}

func (p Projection) Empty() bool {
	return len(p.Rows) == 0
}

// Project computes line totals and the grand total.
func Project(items []LineItem) Projection {
	p := Projection{
		Rows:       make([]Row, 0, len(items)),
		GrandTotal: decimal.Zero,
	}
	for _, item := range items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		p.Rows = append(p.Rows, Row{LineItem: item, LineTotal: lineTotal})
		p.GrandTotal = p.GrandTotal.Add(lineTotal)
		p.ItemCount += item.Quantity
	}
	return p
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var cartTemplate = template.Must(template.New("cart").Funcs(template.FuncMap{
	"money": FormatMoney,
}).Parse(`{{- if .Empty -}}
Cart is empty
{{ else -}}
{{ range .Rows -}}
#{{ .ID }} {{ .Name }}  {{ money .UnitPrice }} x {{ .Quantity }} = {{ money .LineTotal }}
{{ end -}}
Total: {{ money .GrandTotal }} ({{ .ItemCount }} items)
{{ end -}}
`))

// RenderText writes the cart listing for a terminal.
func RenderText(w io.Writer, p Projection) error {
	if err := cartTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("rendering cart: %w", err)
	}
	return nil
}
