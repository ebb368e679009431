// Package extract pulls structured signals out of free-text bank
// descriptions: payment method, invoice/bill/reference numbers, vendor,
// keywords and embedded amounts. Extraction is pure and deterministic.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// PaymentMethod is the rail a transaction moved on.
type PaymentMethod string

const (
	MethodUPI     PaymentMethod = "upi"
	MethodNEFT    PaymentMethod = "neft"
	MethodIMPS    PaymentMethod = "imps"
	MethodRTGS    PaymentMethod = "rtgs"
	MethodACH     PaymentMethod = "ach"
	MethodWire    PaymentMethod = "wire"
	MethodCheque  PaymentMethod = "cheque"
	MethodCard    PaymentMethod = "card"
	MethodCash    PaymentMethod = "cash"
	MethodUnknown PaymentMethod = "unknown"
)

// Signal weights for the confidence score.
const (
	weightMethod   = 20
	weightDocument = 30
	weightVendor   = 25
	weightKeywords = 15
	weightAmount   = 10
	maxConfidence  = 100
	maxVendorWords = 3
)

// Entities is everything Extract found in one description.
type Entities struct {
	Vendor          string
	InvoiceNumber   string // normalized "INV-<n>"
	BillNumber      string // normalized "BILL-<n>"
	ReferenceNumber string
	PaymentMethod   PaymentMethod
	Keywords        []string
	Amount          decimal.Decimal
	HasAmount       bool
	Confidence      int
}

// DocumentNumber returns the invoice number if present, else the bill number.
func (e Entities) DocumentNumber() string {
	if e.InvoiceNumber != "" {
		return e.InvoiceNumber
	}
	return e.BillNumber
}

type methodRule struct {
	method PaymentMethod
	re     *regexp.Regexp
}

// Order matters: a "UPI ... CARD" line is UPI.
var methodRules = []methodRule{
	{MethodUPI, regexp.MustCompile(`\bUPI\b`)},
	{MethodNEFT, regexp.MustCompile(`\bNEFT\b`)},
	{MethodIMPS, regexp.MustCompile(`\b(IMPS|MMT)\b`)},
	{MethodRTGS, regexp.MustCompile(`\bRTGS\b`)},
	{MethodACH, regexp.MustCompile(`\b(ACH|NACH|ECS)\b`)},
	{MethodWire, regexp.MustCompile(`\b(WIRE|SWIFT|TT)\b`)},
	{MethodCheque, regexp.MustCompile(`\b(CHQ|CHEQUE|CHECK|CLG)\b`)},
	{MethodCard, regexp.MustCompile(`\b(POS|CARD|VISA|MASTERCARD|RUPAY|ECOM)\b`)},
	{MethodCash, regexp.MustCompile(`\b(CASH|ATM|ATW)\b`)},
}

var (
	// Document numbers may run on in "-" or "/" separated segments that each
	// carry a digit: INV-2024-001, BILL/23-24/017.
	invoiceRe   = regexp.MustCompile(`\bINV(?:OICE)?[\s#:/-]*(?:NO\.?\s*)?([A-Z]*\d[A-Z0-9]*(?:[-/][A-Z]*\d[A-Z0-9]*)*)`)
	billRe      = regexp.MustCompile(`\bBILL[\s#:/-]*(?:NO\.?\s*)?([A-Z]*\d[A-Z0-9]*(?:[-/][A-Z]*\d[A-Z0-9]*)*)`)
	referenceRe = regexp.MustCompile(`\b(?:UTR|REF|RRN|TXN)[\s#:/-]*(?:NO\.?\s*)?([A-Z0-9]{6,})`)
	longDigitRe = regexp.MustCompile(`\b\d{10,}\b`)
	amountRe    = regexp.MustCompile(`(?:\bRS\.?|\bINR|₹)\s*(\d[\d,]*(?:\.\d{1,2})?)`)
	dateRes     = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}[-\s]?(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[A-Z]*[-\s]?\d{2,4}\b`),
	}
	tokenSplitRe = regexp.MustCompile(`[^A-Za-z0-9&]+`)
)

// Extractor applies the ordered extraction rules using a vocabulary for
// known vendors and noise tokens.
type Extractor struct {
	vocab *vocab.Vocabulary
}

// New creates an Extractor. A nil vocabulary uses vocab.Default().
func New(v *vocab.Vocabulary) *Extractor {
	if v == nil {
		v = vocab.Default()
	}
	return &Extractor{vocab: v}
}

// Extract parses a description. It has no side effects; the same input
// always yields the same Entities.
func (x *Extractor) Extract(description string) Entities {
	upper := strings.ToUpper(strings.TrimSpace(description))
	e := Entities{PaymentMethod: MethodUnknown}

	for _, r := range methodRules {
		if r.re.MatchString(upper) {
			e.PaymentMethod = r.method
			break
		}
	}

	// Strip matched spans as we go so the vendor pass only sees free text.
	rest := upper
	if m := invoiceRe.FindStringSubmatch(rest); m != nil {
		e.InvoiceNumber = "INV-" + m[1]
		rest = strings.Replace(rest, m[0], " ", 1)
	}
	if m := billRe.FindStringSubmatch(rest); m != nil {
		e.BillNumber = "BILL-" + m[1]
		rest = strings.Replace(rest, m[0], " ", 1)
	}
	if m := referenceRe.FindStringSubmatch(rest); m != nil {
		e.ReferenceNumber = m[1]
		rest = strings.Replace(rest, m[0], " ", 1)
	} else if m := longDigitRe.FindString(rest); m != "" {
		e.ReferenceNumber = m
	}
	if m := amountRe.FindStringSubmatch(rest); m != nil {
		if amt, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			e.Amount = amt
			e.HasAmount = true
		}
		rest = strings.Replace(rest, m[0], " ", 1)
	}
	for _, re := range dateRes {
		rest = re.ReplaceAllString(rest, " ")
	}

	tokens := x.significantTokens(rest)
	e.Keywords = tokens

	if name, ok := x.vocab.LookupVendor(upper); ok {
		e.Vendor = name
	} else if len(tokens) > 0 {
		n := min(len(tokens), maxVendorWords)
		// Casers carry state; one per call keeps Extract safe for concurrent use.
		e.Vendor = cases.Title(language.Und).String(strings.Join(tokens[:n], " "))
	}

	e.Confidence = confidence(e)
	return e
}

// significantTokens lower-cases, drops noise, digit-bearing and single-letter
// tokens, and de-duplicates while keeping first-seen order.
func (x *Extractor) significantTokens(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range tokenSplitRe.Split(s, -1) {
		tok := strings.ToLower(raw)
		if len(tok) < 2 || x.vocab.IsNoise(tok) || hasDigit(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func confidence(e Entities) int {
	score := 0
	if e.PaymentMethod != MethodUnknown {
		score += weightMethod
	}
	if e.InvoiceNumber != "" || e.BillNumber != "" {
		score += weightDocument
	}
	if e.Vendor != "" {
		score += weightVendor
	}
	if len(e.Keywords) > 0 {
		score += weightKeywords
	}
	if e.HasAmount {
		score += weightAmount
	}
	return min(score, maxConfidence)
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// NormalizeNumber reduces a document number to a comparable key:
// upper-case alphanumerics with any leading INV/INVOICE/BILL prefix and
// leading zeros removed. "INV-01042", "#1042" and "1042" all become "1042".
func NormalizeNumber(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()
	for _, p := range []string{"INVOICE", "INV", "BILL"} {
		if strings.HasPrefix(n, p) && len(n) > len(p) {
			n = n[len(p):]
			break
		}
	}
	n = strings.TrimLeft(n, "0")
	return n
}
