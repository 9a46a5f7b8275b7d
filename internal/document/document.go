// Package document renders quotes into printable HTML, bills of quantities
// and notification email bodies. Every function is pure: the output depends
// only on its arguments, so rendering the same record twice yields identical
// bytes.
package document

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"

	"irrigation-backend/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

var funcs = map[string]any{
	"upper": strings.ToUpper,
	"title": humanize,
}

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.txt"))
)

// Company identifies the sender on every document.
type Company struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Website string
}

// Email is a rendered notification body.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

type itemRow struct {
	Index       int
	Description string
	Category    string
	Quantity    string
	Unit        string
	UnitPrice   string
	LineTotal   string
}

type boqSection struct {
	Name     string
	Rows     []itemRow
	Subtotal string
}

type quoteView struct {
	Company    Company
	Quote      *models.Quote
	Date       string
	Area       string
	Distance   string
	Status     string
	Items      []itemRow
	Sections   []boqSection
	Subtotal   string
	VAT        string
	Total      string
	VATPercent string
	Priced     bool
}

func newView(q *models.Quote, company Company) quoteView {
	totals := ComputeTotals(q.Subtotal)
	v := quoteView{
		Company:    company,
		Quote:      q,
		Date:       q.CreatedAt.UTC().Format("02 January 2006"),
		Area:       fmt.Sprintf("%s %s", formatQuantity(q.AreaSize), areaUnit(q.AreaUnit)),
		Distance:   fmt.Sprintf("%s km", formatQuantity(q.DistanceToFarm)),
		Status:     humanize(string(q.Status)),
		Subtotal:   FormatMoney(currency(q), totals.Subtotal),
		VAT:        FormatMoney(currency(q), totals.VAT),
		Total:      FormatMoney(currency(q), totals.Total),
		VATPercent: fmt.Sprintf("%.0f%%", VATRate*100),
		Priced:     totals.Subtotal != nil,
	}
	for i, it := range q.Items.Data() {
		v.Items = append(v.Items, row(i+1, it, "", currency(q)))
	}
	return v
}

func row(index int, it models.QuoteItem, category, cur string) itemRow {
	unitPrice := it.UnitPrice
	lineTotal := it.LineTotal()
	return itemRow{
		Index:       index,
		Description: it.Description,
		Category:    category,
		Quantity:    formatQuantity(it.Quantity),
		Unit:        it.Unit,
		UnitPrice:   FormatMoney(cur, &unitPrice),
		LineTotal:   FormatMoney(cur, &lineTotal),
	}
}

// QuoteHTML renders the printable quote document.
func QuoteHTML(q *models.Quote, company Company) (string, error) {
	return renderHTML("quote.html", newView(q, company))
}

// BOQHTML renders the bill of quantities. products resolves item product
// references to catalog categories; unknown references fall under "General".
func BOQHTML(q *models.Quote, products []models.Product, company Company) (string, error) {
	v := newView(q, company)
	v.Sections = sections(q, products)
	return renderHTML("boq.html", v)
}

// ConfirmationEmail is sent to the customer right after a quote request is
// received.
func ConfirmationEmail(q *models.Quote, company Company) (Email, error) {
	return renderEmail("confirmation", fmt.Sprintf("We received your quote request %s", q.QuoteNumber), newView(q, company))
}

// QuoteEmail carries the priced quote to the customer.
func QuoteEmail(q *models.Quote, company Company) (Email, error) {
	return renderEmail("quote_ready", fmt.Sprintf("Your irrigation quote %s from %s", q.QuoteNumber, company.Name), newView(q, company))
}

// AdminNotification tells the sales team a new request arrived.
func AdminNotification(q *models.Quote, company Company) (Email, error) {
	return renderEmail("admin_new_quote", fmt.Sprintf("New quote request %s from %s", q.QuoteNumber, q.CustomerName), newView(q, company))
}

type contactView struct {
	Company Company
	Contact *models.Contact
	Date    string
}

// ContactNotification forwards a contact form message to the sales inbox.
func ContactNotification(ct *models.Contact, company Company) (Email, error) {
	v := contactView{Company: company, Contact: ct, Date: ct.CreatedAt.Format("02 Jan 2006 15:04")}
	return renderEmail("admin_new_contact", fmt.Sprintf("Contact form: %s", ct.Subject), v)
}

func renderEmail(name, subject string, v any) (Email, error) {
	html, err := renderHTML(name+".html", v)
	if err != nil {
		return Email{}, err
	}
	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", v); err != nil {
		return Email{}, fmt.Errorf("render %s.txt: %w", name, err)
	}
	return Email{Subject: subject, HTML: html, Text: text.String()}, nil
}

func renderHTML(name string, v any) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

const generalSection = "General"

func sections(q *models.Quote, products []models.Product) []boqSection {
	cur := currency(q)
	names, grouped := groupItems(q, products)

	out := make([]boqSection, 0, len(names))
	index := 0
	for _, n := range names {
		sec := boqSection{Name: n}
		var sum float64
		for _, it := range grouped[n] {
			index++
			sec.Rows = append(sec.Rows, row(index, it, n, cur))
			sum += it.LineTotal()
		}
		sum = round2(sum)
		sec.Subtotal = FormatMoney(cur, &sum)
		out = append(out, sec)
	}
	return out
}

// groupItems buckets quote lines by the catalog category of the referenced
// product. Section names come back sorted.
func groupItems(q *models.Quote, products []models.Product) ([]string, map[string][]models.QuoteItem) {
	categories := make(map[uint]string, len(products))
	for _, p := range products {
		categories[p.ID] = humanize(string(p.Category))
	}

	grouped := map[string][]models.QuoteItem{}
	for _, it := range q.Items.Data() {
		name := generalSection
		if it.ProductID != nil {
			if c, ok := categories[*it.ProductID]; ok {
				name = c
			}
		}
		grouped[name] = append(grouped[name], it)
	}

	names := make([]string, 0, len(grouped))
	for n := range grouped {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, grouped
}

func currency(q *models.Quote) string {
	if q.Currency == "" {
		return models.DefaultCurrency
	}
	return q.Currency
}

func areaUnit(u string) string {
	if u == "" {
		return models.AreaUnitAcres
	}
	return u
}

// humanize turns "drip_irrigation" into "Drip Irrigation".
func humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
