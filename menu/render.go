package menu

import (
	"io"
	"text/template"

	"github.com/shopspring/decimal"
)

var menuTemplate = template.Must(template.New("menu").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).Parse(`{{- range . -}}
== {{ .Name }} ==
{{ with .Description }}{{ . }}
{{ end -}}
{{ range .Items -}}
  [{{ .ID }}] {{ .Name }}  {{ money .Price }}
{{ with .Description }}      {{ . }}
{{ end }}      image: {{ .ImageOrDefault }}
{{ end -}}
{{ else -}}
Menu is empty
{{ end -}}
`))

func Render(w io.Writer, categories []Category) error {
	return menuTemplate.Execute(w, categories)
}
