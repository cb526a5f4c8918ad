package funcs

import (
	"text/template"
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

var TemplateFuncs = template.FuncMap{
	"formatTime": func(format string, t time.Time) string {
		return t.Format(format)
	},
	"formatMoney": func(c money.Cents) string {
		return c.Display()
	},
}
