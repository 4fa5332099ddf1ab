package report

import (
	"fmt"
	"strings"

	"fundtracker/models"

	"github.com/shopspring/decimal"
)

// NoDataText is shown when there is not yet a baseline and a current reading
const NoDataText = "【数据不足】无法计算。请确保数据库中至少有昨天的基准数据和今天的最新数据。\n" +
	"提示：如果是第一次运行，请等待今晚 23:00 之后的抓取，或使用 seed 命令注入基准数据。"

const separator = "--------------------"

var tenThousand = decimal.NewFromInt(10000)

// FormatWan renders an amount in units of 万 (10,000): whole values without a
// decimal ("89万"), others with one decimal place ("12.3万").
func FormatWan(value int64) string {
	wan := decimal.NewFromInt(value).Div(tenThousand)
	if wan.IsInteger() {
		return wan.StringFixed(0) + "万"
	}
	return wan.StringFixed(1) + "万"
}

// FormatReport renders the daily progress report. A nil result renders NoDataText.
func FormatReport(result *models.MetricsResult) string {
	if result == nil {
		return NoDataText
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s 战报\n", result.NowAt.Format("01月02日 15:04"))
	fmt.Fprintf(&b, "新增人数: %d 人\n", result.DailyQuantity)
	fmt.Fprintf(&b, "新增金额: %s\n", FormatWan(result.DailyAmount))
	b.WriteString("\n")

	fmt.Fprintf(&b, "目标人数: %d 人\n", result.GoalDailyQuantity)
	fmt.Fprintf(&b, "目标金额: %s\n", FormatWan(result.GoalDailyAmount))
	b.WriteString("\n")

	fmt.Fprintf(&b, "人数GAP: %d (进度 %.1f%%)\n", result.GapDailyQuantity, result.PctDailyQuantity)
	fmt.Fprintf(&b, "金额GAP: %s (进度 %.1f%%)\n", FormatWan(result.GapDailyAmount), result.PctDailyAmount)
	b.WriteString(separator + "\n")

	fmt.Fprintf(&b, "累计人数GAP: %d\n", result.GapTotalQuantity)
	fmt.Fprintf(&b, "累计金额GAP: %s", FormatWan(result.GapTotalAmount))

	return b.String()
}

// FormatError renders a failure to produce the report
func FormatError(err error) string {
	return fmt.Sprintf("❌ 生成战报时出错: %v", err)
}

// Render turns a ComputeTodayMetrics outcome into chat text. A computed result
// is rendered even when persisting its rollup failed.
func Render(result *models.MetricsResult, err error) string {
	if result != nil {
		return FormatReport(result)
	}
	if err != nil {
		return FormatError(err)
	}
	return NoDataText
}
