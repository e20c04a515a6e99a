package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// URL date patterns common on Chinese government sites:
// /t20250701_xxx.html → 2025-07-01, /202507/txxx.html → 2025-07-01
var (
	urlDateFullRe  = regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})_`)
	urlDateMonthRe = regexp.MustCompile(`/(\d{4})(\d{2})/t\d+`)
)

// strptime-style directives mapped to Go reference layouts so catalogs can
// carry either convention
var strptimeReplacer = strings.NewReplacer(
	"%Y", "2006",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%y", "06",
)

// normalizeDateFormat converts a strptime pattern to a Go layout; Go-style
// layouts pass through unchanged.
func normalizeDateFormat(format string) string {
	if strings.Contains(format, "%") {
		return strptimeReplacer.Replace(format)
	}
	return format
}

// ParseDateText parses a date string by format, optionally pre-extracting
// with a regex first. Returns the zero time when no date is recognized.
func ParseDateText(text, format, dateRegex string) time.Time {
	if text == "" || format == "" {
		return time.Time{}
	}
	if dateRegex != "" {
		re, err := regexp.Compile(dateRegex)
		if err != nil {
			return time.Time{}
		}
		match := re.FindString(text)
		if match == "" {
			return time.Time{}
		}
		text = match
	}
	parsed, err := time.Parse(normalizeDateFormat(format), strings.TrimSpace(text))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// ExtractDateFromURL derives a publication date from the URL path. The
// /tYYYYMMDD_ form wins over the /YYYYMM/ directory form, which dates to
// the first of the month.
func ExtractDateFromURL(url string) time.Time {
	if m := urlDateFullRe.FindStringSubmatch(url); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return t
		}
	}
	if m := urlDateMonthRe.FindStringSubmatch(url); m != nil {
		if t, ok := makeDate(m[1], m[2], "1"); ok {
			return t
		}
	}
	return time.Time{}
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

// FormatDate renders a date as YYYY-MM-DD, the published_at wire format
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
