package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	stringValidatorOnce sync.Once
	stringValidator     *validator.Validate
)

func formatValidator() *validator.Validate {
	stringValidatorOnce.Do(func() {
		stringValidator = validator.New()
	})
	return stringValidator
}

// collector gathers field messages during one run. A fatal error aborts the
// run and is returned as-is by the entry point.
type collector struct {
	detail ErrorDetail
	fatal  error
}

func newCollector() *collector {
	return &collector{detail: ErrorDetail{}}
}

func (f *Field) run(path string, value any, c *collector) (any, bool) {
	if value == nil {
		if f.AllowNull() {
			return nil, true
		}
		c.detail.Add(path, msgNull)
		return nil, false
	}

	var (
		out  any
		msgs []string
	)
	switch f.class {
	case ClassField, ClassJSON:
		return value, true
	case ClassChar, ClassEmail, ClassURL, ClassRegex:
		out, msgs = f.runText(value)
	case ClassUUID:
		out, msgs = runUUID(value)
	case ClassInteger:
		out, msgs = f.runInteger(value)
	case ClassFloat:
		out, msgs = f.runFloat(value)
	case ClassDecimal:
		out, msgs = f.runDecimal(value)
	case ClassBoolean:
		out, msgs = runBoolean(value)
	case ClassDateTime:
		out, msgs = runDateTime(value)
	case ClassDate:
		out, msgs = runDate(value)
	case ClassTime:
		out, msgs = runTime(value)
	case ClassDuration:
		out, msgs = runDuration(value)
	case ClassChoice:
		out, msgs = f.runChoice(value)
	case ClassBytes:
		out, msgs = runBytes(value)
	case ClassList:
		return f.runList(path, value, c)
	case ClassDict:
		return f.runDict(path, value, c)
	case ClassSerializer:
		return f.runNested(path, value, c)
	default:
		return value, true
	}
	if len(msgs) > 0 {
		c.detail.Add(path, msgs...)
		return nil, false
	}
	return out, true
}

func (f *Field) runText(value any) (any, []string) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		s = fmt.Sprint(v)
	default:
		return nil, []string{msgInvalidString}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		if f.AllowBlank() {
			return "", nil
		}
		return nil, []string{msgBlank}
	}

	var msgs []string
	length := utf8.RuneCountInString(s)
	if lo, ok := f.intOption(OptMinLength); ok && length < lo {
		msgs = append(msgs, fmt.Sprintf("Ensure this field has at least %d characters.", lo))
	}
	if hi, ok := f.intOption(OptMaxLength); ok && length > hi {
		msgs = append(msgs, fmt.Sprintf("Ensure this field has no more than %d characters.", hi))
	}

	switch f.class {
	case ClassEmail:
		if err := formatValidator().Var(s, "email"); err != nil {
			msgs = append(msgs, msgInvalidEmail)
		}
	case ClassURL:
		if err := formatValidator().Var(s, "url"); err != nil {
			msgs = append(msgs, msgInvalidURL)
		}
	case ClassRegex:
		if f.regex != nil && !f.regex.MatchString(s) {
			msgs = append(msgs, msgInvalidPattern)
		}
	}
	if len(msgs) > 0 {
		return nil, msgs
	}
	return s, nil
}

func runUUID(value any) (any, []string) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, []string{msgInvalidUUID}
		}
		return id, nil
	default:
		return nil, []string{msgInvalidUUID}
	}
}

func (f *Field) runInteger(value any) (any, []string) {
	n, ok := toInt(value)
	if !ok {
		return nil, []string{msgInvalidInteger}
	}
	if msgs := f.checkBounds(float64(n)); len(msgs) > 0 {
		return nil, msgs
	}
	return n, nil
}

func (f *Field) runFloat(value any) (any, []string) {
	n, ok := toFloat(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, []string{msgInvalidNumber}
	}
	if msgs := f.checkBounds(n); len(msgs) > 0 {
		return nil, msgs
	}
	return n, nil
}

func (f *Field) checkBounds(n float64) []string {
	var msgs []string
	if lo, ok := f.floatOption(OptMinValue); ok && n < lo {
		msgs = append(msgs, fmt.Sprintf("Ensure this value is greater than or equal to %s.", formatFloat(lo)))
	}
	if hi, ok := f.floatOption(OptMaxValue); ok && n > hi {
		msgs = append(msgs, fmt.Sprintf("Ensure this value is less than or equal to %s.", formatFloat(hi)))
	}
	return msgs
}

func (f *Field) runDecimal(value any) (any, []string) {
	d, ok := toDecimal(value)
	if !ok {
		return nil, []string{msgInvalidNumber}
	}

	total, whole, places := decimalDigits(d)
	maxDigits, hasDigits := f.intOption(OptMaxDigits)
	maxPlaces, hasPlaces := f.intOption(OptDecimalPlaces)
	switch {
	case hasDigits && total > maxDigits:
		return nil, []string{fmt.Sprintf("Ensure that there are no more than %d digits in total.", maxDigits)}
	case hasPlaces && places > maxPlaces:
		return nil, []string{fmt.Sprintf("Ensure that there are no more than %d decimal places.", maxPlaces)}
	case hasDigits && hasPlaces && maxDigits > maxPlaces && whole > maxDigits-maxPlaces:
		return nil, []string{fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxDigits-maxPlaces)}
	}

	var msgs []string
	if lo, ok := f.floatOption(OptMinValue); ok && d.LessThan(decimal.NewFromFloat(lo)) {
		msgs = append(msgs, fmt.Sprintf("Ensure this value is greater than or equal to %s.", formatFloat(lo)))
	}
	if hi, ok := f.floatOption(OptMaxValue); ok && d.GreaterThan(decimal.NewFromFloat(hi)) {
		msgs = append(msgs, fmt.Sprintf("Ensure this value is less than or equal to %s.", formatFloat(hi)))
	}
	if len(msgs) > 0 {
		return nil, msgs
	}
	if hasPlaces {
		d = d.Round(int32(maxPlaces))
	}
	return d, nil
}

// decimalDigits splits d into total, whole and fractional digit counts using
// the coefficient and exponent as written.
func decimalDigits(d decimal.Decimal) (total, whole, places int) {
	coefficient := new(big.Int).Abs(d.Coefficient())
	digits := len(coefficient.String())
	exponent := int(d.Exponent())
	switch {
	case exponent >= 0:
		total = digits + exponent
		whole = total
	case digits > -exponent:
		total = digits
		whole = digits + exponent
		places = -exponent
	default:
		places = -exponent
		total = places
	}
	return total, whole, places
}

func runBoolean(value any) (any, []string) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.TrimSpace(v) {
		case "t", "T", "y", "Y", "yes", "Yes", "YES", "true", "True", "TRUE", "on", "On", "ON", "1":
			return true, nil
		case "f", "F", "n", "N", "no", "No", "NO", "false", "False", "FALSE", "off", "Off", "OFF", "0":
			return false, nil
		}
	default:
		if n, ok := toInt(v); ok {
			switch n {
			case 1:
				return true, nil
			case 0:
				return false, nil
			}
		}
	}
	return nil, []string{msgInvalidBoolean}
}

var (
	dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}
	timeLayouts     = []string{"15:04:05.999999999", "15:04"}
)

func runDateTime(value any) (any, []string) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		if t, ok := parseLayouts(strings.TrimSpace(v), dateTimeLayouts); ok {
			return t, nil
		}
	}
	return nil, []string{msgDateTime}
}

func runDate(value any) (any, []string) {
	switch v := value.(type) {
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		if t, err := time.Parse(time.DateOnly, strings.TrimSpace(v)); err == nil {
			return t, nil
		}
	}
	return nil, []string{msgDate}
}

func runTime(value any) (any, []string) {
	switch v := value.(type) {
	case time.Time:
		return time.Date(0, 1, 1, v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.UTC), nil
	case string:
		if t, ok := parseLayouts(strings.TrimSpace(v), timeLayouts); ok {
			return t, nil
		}
	}
	return nil, []string{msgTime}
}

func runDuration(value any) (any, []string) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d, nil
		}
	default:
		if n, ok := toFloat(v); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return time.Duration(n * float64(time.Second)), nil
		}
	}
	return nil, []string{msgDuration}
}

func parseLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f *Field) runChoice(value any) (any, []string) {
	if s, ok := value.(string); ok && s == "" && f.AllowBlank() {
		return "", nil
	}
	choices, _ := f.opts[OptChoices].([]any)
	key := fmt.Sprint(value)
	for _, choice := range choices {
		if fmt.Sprint(choice) == key {
			return choice, nil
		}
	}
	return nil, []string{fmt.Sprintf("%q is not a valid choice.", key)}
}

func runBytes(value any) (any, []string) {
	switch v := value.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case json.RawMessage:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	default:
		return nil, []string{msgInvalidBytes}
	}
}

func (f *Field) runList(path string, value any, c *collector) (any, bool) {
	items, ok := asSlice(value)
	if !ok {
		c.detail.Add(path, fmt.Sprintf("Expected a list of items but got type %q.", typeName(value)))
		return nil, false
	}

	var msgs []string
	if len(items) == 0 && !f.AllowEmpty() {
		msgs = append(msgs, msgEmptyList)
	}
	if lo, ok := f.intOption(OptMinLength); ok && len(items) < lo {
		msgs = append(msgs, fmt.Sprintf("Ensure this field has at least %d elements.", lo))
	}
	if hi, ok := f.intOption(OptMaxLength); ok && len(items) > hi {
		msgs = append(msgs, fmt.Sprintf("Ensure this field has no more than %d elements.", hi))
	}
	if len(msgs) > 0 {
		c.detail.Add(path, msgs...)
		return nil, false
	}

	out := make([]any, 0, len(items))
	valid := true
	for i, item := range items {
		if f.child == nil {
			out = append(out, item)
			continue
		}
		v, ok := f.child.run(joinPath(path, strconv.Itoa(i)), item, c)
		if c.fatal != nil {
			return nil, false
		}
		valid = valid && ok
		out = append(out, v)
	}
	if !valid {
		return nil, false
	}
	return out, true
}

func (f *Field) runDict(path string, value any, c *collector) (any, bool) {
	entries, ok := asStringMap(value)
	if !ok {
		c.detail.Add(path, fmt.Sprintf("Expected a dictionary of items but got type %q.", typeName(value)))
		return nil, false
	}
	if len(entries) == 0 && !f.AllowEmpty() {
		c.detail.Add(path, msgEmptyDict)
		return nil, false
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(entries))
	valid := true
	for _, key := range keys {
		if f.child == nil {
			out[key] = entries[key]
			continue
		}
		v, ok := f.child.run(joinPath(path, key), entries[key], c)
		if c.fatal != nil {
			return nil, false
		}
		valid = valid && ok
		out[key] = v
	}
	if !valid {
		return nil, false
	}
	return out, true
}

func (f *Field) runNested(path string, value any, c *collector) (any, bool) {
	data, ok := asStringMap(value)
	if !ok {
		c.detail.Add(path, fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeName(value)))
		return nil, false
	}
	child := f.nested.New(data)
	out, err := f.nested.execute(child, data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.detail.Merge(path, verr.Detail)
			return nil, false
		}
		c.fatal = err
		return nil, false
	}
	return out, true
}

func toInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case float32:
		return integral(float64(v))
	case float64:
		return integral(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if n, err := v.Float64(); err == nil {
			return integral(n)
		}
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return integral(n)
		}
	}
	return 0, false
}

func integral(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v < math.MinInt64 || v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, ok := toInt(v)
		return float64(n), ok
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	default:
		if n, ok := toInt(v); ok {
			return decimal.NewFromInt(n), true
		}
	}
	return decimal.Decimal{}, false
}

func fromFloat(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(v), true
}

func asSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "str"
	case bool:
		return "bool"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	case float32, float64:
		return "float"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
