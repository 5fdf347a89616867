package features

import (
	"strconv"
	"time"

	"defi-bi-etl/internal/domain"
)

// TimeColumns are appended by TimeFeatures.CSVRecord.
var TimeColumns = []string{
	"year", "month", "day", "day_of_week", "quarter", "week_of_year",
	"month_name", "day_name", "is_weekend", "days_since_epoch",
}

// TimeFeatures are calendar attributes of a date or timestamp.
type TimeFeatures struct {
	Year           int
	Month          int
	Day            int
	DayOfWeek      int // Monday = 0
	Quarter        int
	WeekOfYear     int // ISO week
	MonthName      string
	DayName        string
	IsWeekend      bool
	DaysSinceEpoch int64
}

// Time computes calendar attributes of t in UTC.
func Time(t time.Time) TimeFeatures {
	u := t.UTC()
	_, week := u.ISOWeek()
	secs := u.Unix()
	days := secs / 86400
	if secs%86400 < 0 {
		days--
	}
	return TimeFeatures{
		Year:           u.Year(),
		Month:          int(u.Month()),
		Day:            u.Day(),
		DayOfWeek:      (int(u.Weekday()) + 6) % 7,
		Quarter:        (int(u.Month())-1)/3 + 1,
		WeekOfYear:     week,
		MonthName:      u.Month().String(),
		DayName:        u.Weekday().String(),
		IsWeekend:      u.Weekday() == time.Saturday || u.Weekday() == time.Sunday,
		DaysSinceEpoch: days,
	}
}

// CSVRecord renders the features in TimeColumns order.
func (f TimeFeatures) CSVRecord() []string {
	weekend := "False"
	if f.IsWeekend {
		weekend = "True"
	}
	return []string{
		strconv.Itoa(f.Year),
		strconv.Itoa(f.Month),
		strconv.Itoa(f.Day),
		strconv.Itoa(f.DayOfWeek),
		strconv.Itoa(f.Quarter),
		strconv.Itoa(f.WeekOfYear),
		f.MonthName,
		f.DayName,
		weekend,
		strconv.FormatInt(f.DaysSinceEpoch, 10),
	}
}

// CategoryFeaturesColumns is the layout of the categories feature file.
var CategoryFeaturesColumns = concat(domain.CategoryColumns, TimeColumns)

// CategoryFeatures is a category snapshot row with time attributes of its timestamp.
type CategoryFeatures struct {
	domain.CategoryRecord
	Time TimeFeatures
}

// Categories adds time features to each category.
func Categories(records []domain.CategoryRecord) []CategoryFeatures {
	out := make([]CategoryFeatures, len(records))
	for i, r := range records {
		out[i] = CategoryFeatures{CategoryRecord: r, Time: Time(r.Timestamp)}
	}
	return out
}

// CSVRecord renders the row in CategoryFeaturesColumns order.
func (c CategoryFeatures) CSVRecord() []string {
	return concat(c.CategoryRecord.CSVRecord(), c.Time.CSVRecord())
}

func concat(parts ...[]string) []string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
