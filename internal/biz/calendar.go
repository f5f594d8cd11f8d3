package biz

import (
	"fmt"
	"time"
)

// isoMonday ISO-8601 星期一（星期一 = 1 … 星期日 = 7）
const isoMonday = 1

// YearMonth 年月
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf 返回 t 所在的年月
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// WeekKey 月内周（year, month, week-of-month）
type WeekKey struct {
	Year  int
	Month int
	Week  int
}

// WeekKeyOf 返回 t 所在的月内周
func WeekKeyOf(t time.Time) WeekKey {
	return WeekKey{Year: t.Year(), Month: int(t.Month()), Week: WeekOfMonth(t)}
}

// isoWeekday 将 time.Weekday 转为 ISO 编号
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekOfMonth 计算月内第几周
//
//	offset = (当月1日的ISO星期 - MONDAY + 7) % 7
//	week   = (day + offset - 1) / 7 + 1
func WeekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := (isoWeekday(first) - isoMonday + 7) % 7
	return (t.Day()+offset-1)/7 + 1
}

// dayKey 日历日（结算时区）
type dayKey struct {
	Year  int
	Month int
	Day   int
}

func dayKeyOf(t time.Time) dayKey {
	return dayKey{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// DateSerial 将日期编码为 yyyymmdd，用于汇总表的日期区间过滤
func DateSerial(year, month, day int) int {
	return year*10000 + month*100 + day
}

// MonthStart 返回 t 所在月 1 日零点
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// WeekStartsBetween 返回 [from, to] 内每个月内周落在区间中的第一天，按日期升序
func WeekStartsBetween(from, to time.Time) []time.Time {
	var (
		days []time.Time
		last WeekKey
	)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for d := start; !d.After(to); d = d.AddDate(0, 0, 1) {
		if k := WeekKeyOf(d); len(days) == 0 || k != last {
			days = append(days, d)
			last = k
		}
	}
	return days
}

// MonthsBetween 返回 [from, to] 覆盖的年月，按时间升序
func MonthsBetween(from, to time.Time) []YearMonth {
	var months []YearMonth
	for m := MonthStart(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		months = append(months, YearMonthOf(m))
	}
	return months
}
