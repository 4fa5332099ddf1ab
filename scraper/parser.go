package scraper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
)

// Locations of the counters in the campaign's hero widget
const (
	AmountXPath   = "/html/body/section/div[2]/div[3]/div[1]/dl/dd"
	QuantityXPath = "/html/body/section/div[2]/div[3]/div[3]/div[1]/dl/dd"
)

// ErrUnexpectedLayout is returned when the page no longer has the expected structure
var ErrUnexpectedLayout = errors.New("page layout did not match expected nodes")

// ParseMetrics extracts the cumulative amount and backer count from the widget HTML
func ParseMetrics(page string) (totalAmount, totalQuantity int64, err error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse html: %w", err)
	}

	amountNode, err := htmlquery.Query(doc, AmountXPath)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid amount xpath: %w", err)
	}
	quantityNode, err := htmlquery.Query(doc, QuantityXPath)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quantity xpath: %w", err)
	}
	if amountNode == nil || quantityNode == nil {
		return 0, 0, ErrUnexpectedLayout
	}

	totalAmount, err = ParseDigits(htmlquery.InnerText(amountNode))
	if err != nil {
		return 0, 0, fmt.Errorf("amount: %w", err)
	}
	totalQuantity, err = ParseDigits(htmlquery.InnerText(quantityNode))
	if err != nil {
		return 0, 0, fmt.Errorf("quantity: %w", err)
	}

	return totalAmount, totalQuantity, nil
}

// ParseDigits keeps only the decimal digits of text ("12,345円" -> 12345).
// Full-width digits are accepted.
func ParseDigits(text string) (int64, error) {
	var digits strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= '０' && r <= '９':
			digits.WriteRune('0' + (r - '０'))
		}
	}

	if digits.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", strings.TrimSpace(text))
	}

	value, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q: %w", digits.String(), err)
	}
	return value, nil
}
