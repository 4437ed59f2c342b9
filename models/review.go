package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Field names, in output column order
const (
	FieldDate           = "date"
	FieldEmployeeTitle  = "employee_title"
	FieldLocation       = "location"
	FieldEmployeeStatus = "employee_status"
	FieldReviewTitle    = "review_title"
	FieldYearsAtCompany = "years_at_company"
	FieldHelpful        = "helpful"
	FieldPros           = "pros"
	FieldCons           = "cons"
	FieldAdviceToMgmt   = "advice_to_mgmt"
	FieldRatingOverall  = "rating_overall"
	FieldRatingBalance  = "rating_balance"
	FieldRatingCulture  = "rating_culture"
	FieldRatingCareer   = "rating_career"
	FieldRatingComp     = "rating_comp"
	FieldRatingMgmt     = "rating_mgmt"
)

// Schema is the fixed, ordered list of fields every ReviewRecord carries.
// Never mutate it.
var Schema = []string{
	FieldDate,
	FieldEmployeeTitle,
	FieldLocation,
	FieldEmployeeStatus,
	FieldReviewTitle,
	FieldYearsAtCompany,
	FieldHelpful,
	FieldPros,
	FieldCons,
	FieldAdviceToMgmt,
	FieldRatingOverall,
	FieldRatingBalance,
	FieldRatingCulture,
	FieldRatingCareer,
	FieldRatingComp,
	FieldRatingMgmt,
}

// SubRatings maps each category sub-rating field to its position in the
// ratings widget's ordered sub-rating list.
var SubRatings = []struct {
	Field    string
	Position int
}{
	{FieldRatingBalance, 0},
	{FieldRatingCulture, 1},
	{FieldRatingCareer, 2},
	{FieldRatingComp, 3},
	{FieldRatingMgmt, 4},
}

// ErrSchemaViolation means an assembled record's field set differs from Schema
var ErrSchemaViolation = errors.New("record does not match schema")

// ValueKind tags how a field value was obtained
type ValueKind int

const (
	KindOK ValueKind = iota
	KindMissing
	KindDefaulted
)

// Value is a single extracted field
type Value struct {
	Kind ValueKind
	Text string
}

// OK wraps a successfully extracted value
func OK(text string) Value {
	return Value{Kind: KindOK, Text: text}
}

// Missing marks a value that could not be extracted
func Missing() Value {
	return Value{Kind: KindMissing}
}

// Defaulted wraps a fallback used in place of an unreadable value
func Defaulted(text string) Value {
	return Value{Kind: KindDefaulted, Text: text}
}

// IsMissing reports whether the value is the missing marker
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing
}

// String returns the value text, or "" for missing values
func (v Value) String() string {
	if v.IsMissing() {
		return ""
	}
	return v.Text
}

// ReviewRecord is one assembled review. It is immutable once built.
type ReviewRecord struct {
	fields map[string]Value
}

// NewReviewRecord builds a record, requiring exactly the Schema field set
func NewReviewRecord(values map[string]Value) (ReviewRecord, error) {
	if err := checkSchema(values); err != nil {
		return ReviewRecord{}, err
	}

	fields := make(map[string]Value, len(values))
	for k, v := range values {
		fields[k] = v
	}
	return ReviewRecord{fields: fields}, nil
}

func checkSchema(values map[string]Value) error {
	var missing, extra []string
	for _, name := range Schema {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range values {
		if !inSchema(name) {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fmt.Errorf("%w: missing %v, unexpected %v", ErrSchemaViolation, missing, extra)
}

func inSchema(name string) bool {
	for _, f := range Schema {
		if f == name {
			return true
		}
	}
	return false
}

// Get returns the value of a field. Unknown fields read as missing.
func (r ReviewRecord) Get(field string) Value {
	v, ok := r.fields[field]
	if !ok {
		return Missing()
	}
	return v
}

// Keys returns the record's field names in schema order
func (r ReviewRecord) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for _, name := range Schema {
		if _, ok := r.fields[name]; ok {
			keys = append(keys, name)
		}
	}
	return keys
}

// Row returns the field texts in schema order, missing values as ""
func (r ReviewRecord) Row() []string {
	row := make([]string, len(Schema))
	for i, name := range Schema {
		row[i] = r.Get(name).String()
	}
	return row
}

// Title returns the review title, used to identify the record in logs
func (r ReviewRecord) Title() string {
	return r.Get(FieldReviewTitle).String()
}

// Date parses the record's date field
func (r ReviewRecord) Date() (time.Time, bool) {
	v := r.Get(FieldDate)
	if v.IsMissing() {
		return time.Time{}, false
	}
	t, err := ParseReviewDate(v.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MarshalJSON encodes the record as an object; missing values become null
func (r ReviewRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(Schema))
	for _, name := range Schema {
		v := r.Get(name)
		if v.IsMissing() {
			out[name] = nil
			continue
		}
		text := v.Text
		out[name] = &text
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object produced by MarshalJSON
func (r *ReviewRecord) UnmarshalJSON(data []byte) error {
	var in map[string]*string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	values := make(map[string]Value, len(in))
	for name, text := range in {
		if text == nil {
			values[name] = Missing()
			continue
		}
		values[name] = OK(*text)
	}

	rec, err := NewReviewRecord(values)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

var timezoneSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// ParseReviewDate parses the machine-readable dates found on review pages
func ParseReviewDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(timezoneSuffix.ReplaceAllString(dateStr, ""))

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"Mon Jan 02 2006 15:04:05 GMT-0700",
		"Mon Jan 2 2006 15:04:05 GMT-0700",
		"January 2, 2006",
		"Jan 2, 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
