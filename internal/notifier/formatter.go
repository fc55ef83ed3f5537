package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/recorder"
)

// FormatScanReport formats a scan summary into a Telegram message. At most
// perCategory securities are listed under each category; fresh marks the
// ones that were not in the previous scan.
func FormatScanReport(sum *model.ScanSummary, fresh map[model.Category][]model.Hit, perCategory int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>PatternSentinel 选股报告</b> | %s\n\n", sum.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("数据源: %s (%s)\n", sum.Source, sum.Period))
	b.WriteString(fmt.Sprintf("股票总数: %s | 耗时: %s\n", humanize.Comma(int64(sum.Total)), sum.Duration().Round(time.Second)))
	b.WriteString(fmt.Sprintf("命中: %s | 未命中: %s | 排除: %s | 获取失败: %s\n",
		humanize.Comma(int64(sum.Counts[model.StatusMatched])),
		humanize.Comma(int64(sum.Counts[model.StatusNoMatch])),
		humanize.Comma(int64(sum.Counts[model.StatusExcluded])),
		humanize.Comma(int64(sum.Counts[model.StatusFetchError]+sum.Counts[model.StatusInvalid])),
	))
	if sum.Canceled {
		b.WriteString("⚠️ 扫描被中断，结果不完整\n")
	}

	cats := sum.HitCategories()
	if len(cats) == 0 {
		b.WriteString("\n今日没有股票符合任何形态")
		return b.String()
	}

	for _, c := range cats {
		hits := sum.Hits[c]
		isFresh := make(map[string]bool, len(fresh[c]))
		for _, h := range fresh[c] {
			isFresh[h.Code] = true
		}
		b.WriteString(fmt.Sprintf("\n📈 <b>%s</b> (%d", html.EscapeString(c.Label()), len(hits)))
		if n := len(fresh[c]); n > 0 {
			b.WriteString(fmt.Sprintf(", 新增 %d", n))
		}
		b.WriteString(")\n")
		for i, h := range hits {
			if perCategory > 0 && i >= perCategory {
				b.WriteString(fmt.Sprintf("  … 另有 %d 只\n", len(hits)-perCategory))
				break
			}
			mark := ""
			if isFresh[h.Code] {
				mark = " 🆕"
			}
			b.WriteString(fmt.Sprintf("  %s %s%s\n", h.Code, html.EscapeString(h.Name), mark))
		}
	}
	if sum.ExportPath != "" {
		b.WriteString(fmt.Sprintf("\n导出文件: %s", html.EscapeString(sum.ExportPath)))
	}
	return b.String()
}

// FormatCheckResult formats a single-security classification.
func FormatCheckResult(s *model.Series, r model.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔍 <b>%s %s</b>\n", r.Symbol, html.EscapeString(r.Name)))
	if s != nil && s.Len() > 0 {
		last := s.Last()
		b.WriteString(fmt.Sprintf("最新: %s 收盘 %s 涨跌 %+.2f%%\n",
			last.Date.Format("2006-01-02"), humanize.FormatFloat("#,###.##", last.Close), last.PctChg))
		b.WriteString(fmt.Sprintf("K线数量: %d\n", s.Len()))
	}
	if r.Excluded {
		b.WriteString("已被排除规则过滤 (ST/北交所/科创板或历史不足)\n")
	}
	if r.IsNoMatch() {
		b.WriteString(fmt.Sprintf("结果: %s", model.NoMatch.Label()))
		return b.String()
	}
	b.WriteString("命中形态:\n")
	for _, m := range r.Matches {
		at := ""
		if !m.Date.IsZero() {
			at = " @ " + m.Date.Format("2006-01-02")
		}
		b.WriteString(fmt.Sprintf("  ✅ %s%s\n", html.EscapeString(m.Category.Label()), at))
	}
	return b.String()
}

// FormatStatus describes the scanner state for /status.
func FormatStatus(last *model.ScanSummary, scanning bool, nextRun time.Time) string {
	var b strings.Builder
	b.WriteString("📦 <b>扫描状态</b>\n\n")
	if scanning {
		b.WriteString("当前: 扫描中\n")
	} else {
		b.WriteString("当前: 空闲\n")
	}
	if last == nil {
		b.WriteString("尚未完成任何扫描\n")
	} else {
		b.WriteString(fmt.Sprintf("上次扫描: %s (%s)\n", last.FinishedAt.Format("2006-01-02 15:04"), humanize.Time(last.FinishedAt)))
		b.WriteString(fmt.Sprintf("运行ID: %s\n", last.RunID))
		b.WriteString(fmt.Sprintf("命中股票: %d / %d\n", last.Matched(), last.Total))
	}
	if !nextRun.IsZero() {
		b.WriteString(fmt.Sprintf("下次扫描: %s\n", nextRun.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatHistory lists recent runs for /history.
func FormatHistory(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "暂无扫描记录"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>最近扫描</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  命中 %d / %d  (%s)\n",
			r.StartedAt.Format("01-02 15:04"), r.Counts[model.StatusMatched], r.Total,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second)))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "可用命令:\n" +
		"/scan - 立即执行一次全市场扫描\n" +
		"/status - 查看扫描状态\n" +
		"/check &lt;代码&gt; - 检查单只股票\n" +
		"/history - 最近扫描记录\n" +
		"/categories - 形态列表\n" +
		"/help - 帮助"
}

// FormatCategories lists the catalog with enabled markers.
func FormatCategories(enabled []model.Category) string {
	on := make(map[model.Category]bool, len(enabled))
	for _, c := range enabled {
		on[c] = true
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📚 <b>形态目录</b> v%d\n\n", model.CatalogVersion))
	for _, c := range model.Catalog() {
		if c == model.NoMatch {
			continue
		}
		mark := "⬜"
		if on[c] {
			mark = "✅"
		}
		b.WriteString(fmt.Sprintf("%s %s <code>%s</code>\n", mark, html.EscapeString(c.Label()), c))
	}
	return b.String()
}
