// Package receipt turns noisy OCR text into structured fields and checks them
// against campaign purchase rules. Extraction is best-effort: every absent
// pattern has a documented default instead of an error, since OCR noise is the
// dominant source of false rejects.
package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

// maxItems caps parsed line items to the first matches.
const maxItems = 5

var (
	dateRe  = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	timeRe  = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	totalRe = regexp.MustCompile(`(?i)total\s*[$£€]?\s*(\d+\.\d{2})`)
	itemRe  = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .&'-]*?)\s+[$£€]?(\d+\.\d{2})\s*$`)

	// Summary lines look like items to itemRe but are not purchases.
	summaryWords = []string{"total", "subtotal", "tax", "change", "cash", "card"}
)

// Parse extracts receipt fields from raw OCR text.
// Defaults: date = now's date, time = now's clock time, total = 0, items = none.
func Parse(rawText string, now time.Time) model.ReceiptData {
	data := model.ReceiptData{
		Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Time: now.Format("15:04"),
	}

	if m := dateRe.FindString(rawText); m != "" {
		if d, ok := parseReceiptDate(m); ok {
			data.Date = d
		}
	}
	if m := timeRe.FindString(rawText); m != "" {
		data.Time = m
	}
	if m := totalRe.FindStringSubmatch(rawText); m != nil {
		data.Total, _ = strconv.ParseFloat(m[1], 64)
	}
	data.Items = parseItems(rawText)
	return data
}

func parseItems(rawText string) []model.ReceiptItem {
	var items []model.ReceiptItem
	for _, line := range strings.Split(rawText, "\n") {
		m := itemRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if isSummaryLine(name) {
			continue
		}
		price, _ := strconv.ParseFloat(m[2], 64)
		items = append(items, model.ReceiptItem{Name: name, Price: price})
		if len(items) == maxItems {
			break
		}
	}
	return items
}

func isSummaryLine(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range summaryWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// parseReceiptDate accepts the loose D[/-]D[/-]Y shapes OCR produces.
func parseReceiptDate(s string) (time.Time, bool) {
	norm := strings.ReplaceAll(s, "-", "/")
	for _, layout := range []string{"1/2/2006", "1/2/06"} {
		if d, err := time.Parse(layout, norm); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Validate checks parsed fields against the campaign rule, short-circuiting on
// the first violation. The duplicate-claim check belongs to the caller, which
// owns ledger access.
func Validate(data model.ReceiptData, rule model.CampaignRule) error {
	if data.Total < rule.MinPurchaseTotal {
		return fmt.Errorf("%w: total %.2f below minimum %.2f", errs.ErrReceiptRejected, data.Total, rule.MinPurchaseTotal)
	}
	if !rule.WindowStart.IsZero() && data.Date.Before(rule.WindowStart) {
		return fmt.Errorf("%w: purchase before campaign start", errs.ErrReceiptRejected)
	}
	if !rule.WindowEnd.IsZero() && data.Date.After(rule.WindowEnd) {
		return fmt.Errorf("%w: purchase after campaign end", errs.ErrReceiptRejected)
	}
	for _, kw := range rule.RequiredItemKeywords {
		if !hasKeyword(data.Items, kw) {
			return fmt.Errorf("%w: required item %q not found", errs.ErrReceiptRejected, kw)
		}
	}
	return nil
}

func hasKeyword(items []model.ReceiptItem, keyword string) bool {
	kw := strings.ToLower(keyword)
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), kw) {
			return true
		}
	}
	return false
}
