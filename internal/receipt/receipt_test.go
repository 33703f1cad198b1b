package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

var now = time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

const sampleText = `GREENFIELD MARKET
123 Main St
06/12/2026 13:45:12

LED Lights        $12.00
Garden Soil       4.50
Subtotal          16.50
Tax               1.00
TOTAL $17.50
`

func TestParse_FullReceipt(t *testing.T) {
	data := Parse(sampleText, now)

	require.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), data.Date)
	require.Equal(t, "13:45:12", data.Time)
	require.Equal(t, 17.50, data.Total)
	require.Len(t, data.Items, 2)
	require.Equal(t, "LED Lights", data.Items[0].Name)
	require.Equal(t, 12.00, data.Items[0].Price)
	require.Equal(t, "Garden Soil", data.Items[1].Name)
}

func TestParse_DefaultsWhenPatternsAbsent(t *testing.T) {
	data := Parse("completely unreadable noise", now)

	require.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), data.Date)
	require.Equal(t, "14:30", data.Time)
	require.Equal(t, 0.0, data.Total)
	require.Empty(t, data.Items)
}

func TestParse_DashDateAndTwoDigitYear(t *testing.T) {
	data := Parse("receipt 6-12-26 stuff", now)
	require.Equal(t, 2026, data.Date.Year())
	require.Equal(t, time.June, data.Date.Month())
	require.Equal(t, 12, data.Date.Day())
}

func TestParse_TotalCaseInsensitiveWithCurrency(t *testing.T) {
	require.Equal(t, 12.50, Parse("ToTaL  €12.50", now).Total)
	require.Equal(t, 9.99, Parse("total 9.99", now).Total)

	// An amount without exactly two decimals does not match.
	require.Equal(t, 0.0, Parse("total 12", now).Total)
}

func TestParse_ItemsCappedAtFive(t *testing.T) {
	text := `Item One 1.00
Item Two 2.00
Item Three 3.00
Item Four 4.00
Item Five 5.00
Item Six 6.00
Item Seven 7.00`
	data := Parse(text, now)
	require.Len(t, data.Items, 5)
	require.Equal(t, "Item Five", data.Items[4].Name)
}

func TestParse_SummaryLinesNotItems(t *testing.T) {
	text := "Subtotal 10.00\nTax 0.80\nSnacks 3.20"
	data := Parse(text, now)
	require.Len(t, data.Items, 1)
	require.Equal(t, "Snacks", data.Items[0].Name)
}

func testRule() model.CampaignRule {
	return model.CampaignRule{
		CampaignID:           2,
		MinPurchaseTotal:     10.00,
		RequiredItemKeywords: []string{"lights"},
		WindowStart:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:            time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidate_OK(t *testing.T) {
	data := Parse(sampleText, now)
	require.NoError(t, Validate(data, testRule()))
}

func TestValidate_TotalBelowMinimum(t *testing.T) {
	data := Parse(sampleText, now)
	data.Total = 9.99
	err := Validate(data, testRule())
	require.ErrorIs(t, err, errs.ErrReceiptRejected)
	require.Contains(t, err.Error(), "below minimum")
}

func TestValidate_OutsideWindow(t *testing.T) {
	data := Parse(sampleText, now)

	data.Date = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	require.ErrorIs(t, Validate(data, testRule()), errs.ErrReceiptRejected)

	data.Date = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	require.ErrorIs(t, Validate(data, testRule()), errs.ErrReceiptRejected)
}

func TestValidate_MissingKeyword(t *testing.T) {
	data := Parse("Garden Soil 4.50\nTOTAL $17.50", now)
	err := Validate(data, testRule())
	require.ErrorIs(t, err, errs.ErrReceiptRejected)
	require.Contains(t, err.Error(), "lights")
}

func TestValidate_KeywordCaseInsensitive(t *testing.T) {
	rule := testRule()
	rule.RequiredItemKeywords = []string{"LIGHTS"}
	data := Parse(sampleText, now)
	require.NoError(t, Validate(data, rule))
}

func TestValidate_ShortCircuitOrder(t *testing.T) {
	// Total violation reported even though the keyword is also missing.
	data := Parse("nothing useful", now)
	err := Validate(data, testRule())
	require.ErrorIs(t, err, errs.ErrReceiptRejected)
	require.Contains(t, err.Error(), "below minimum")
}
