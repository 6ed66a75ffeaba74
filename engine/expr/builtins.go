package expr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// BuiltinFunc is a pure, null-safe function available to {{ }} expressions.
type BuiltinFunc func(args []any) (any, error)

// Builtins is the fixed registry of functions expressions may call by
// name. Every function defaults sensibly on null/undefined operands
// rather than erroring, per the spec's null-safety requirement.
var Builtins map[string]BuiltinFunc

func init() {
	Builtins = map[string]BuiltinFunc{
		// Strings
		"upper":       fn1str(strings.ToUpper),
		"lower":       fn1str(strings.ToLower),
		"trim":        fn1str(strings.TrimSpace),
		"replace":     biReplace,
		"split":       biSplit,
		"join":        biJoin,
		"truncate":    biTruncate,
		"concat":      biConcat,
		"includes":    biIncludes,
		"starts_with": biStartsWith,
		"ends_with":   biEndsWith,
		"substring":   biSubstring,
		"pad_start":   biPadStart,
		"pad_end":     biPadEnd,
		"repeat":      biRepeat,
		"char_at":     biCharAt,
		"len":         biLen,

		// Arrays
		"length":   biLen,
		"first":    biFirst,
		"last":     biLast,
		"slice":    biSlice,
		"flatten":  biFlatten,
		"unique":   biUnique,
		"reverse":  biReverse,
		"contains": biContains,
		"index_of": biIndexOf,
		"sort":     biSort,
		"compact":  biCompact,
		"count":    biLen,
		"at":       biAt,
		"every":    biEvery,
		"some":     biSome,
		"find":     biFind,
		"take":     biTake,
		"skip":     biSkip,
		"range":    biRange,

		// Math
		"min":        biMin,
		"max":        biMax,
		"sum":        biSum,
		"avg":        biAvg,
		"round":      biRound,
		"floor":      fn1num(math.Floor),
		"ceil":       fn1num(math.Ceil),
		"abs":        fn1num(math.Abs),
		"pow":        biPow,
		"sqrt":       fn1num(math.Sqrt),
		"random":     biRandom,
		"random_int": biRandomInt,
		"clamp":      biClamp,
		"mod":        biMod,
		"sign":       biSign,
		"trunc":      fn1num(math.Trunc),
		"percent":    biPercent,

		// Time
		"now":          biNow,
		"date":         biDate,
		"timestamp":    biTimestamp,
		"from_timestamp": biFromTimestamp,
		"parse_date":   biParseDate,
		"format_date":  biFormatDate,
		"add_time":     biAddTime,
		"subtract_time": biSubtractTime,
		"diff":         biDiff,
		"is_before":    biIsBefore,
		"is_after":     biIsAfter,

		// Objects
		"keys":        biKeys,
		"values":      biValues,
		"entries":     biEntries,
		"from_entries": biFromEntries,
		"get":         biGet,
		"has":         biHas,
		"merge":       biMerge,
		"pick":        biPick,
		"omit":        biOmit,
		"size":        biSize,
		"set":         biSet,
		"delete":      biDelete,
		"equals":      biEquals,
		"clone":       biClone,

		// Types
		"typeof":      biTypeof,
		"is_null":     func(a []any) (any, error) { return arg(a, 0) == nil, nil },
		"is_array":    func(a []any) (any, error) { _, ok := arg(a, 0).([]any); return ok, nil },
		"is_object":   func(a []any) (any, error) { _, ok := arg(a, 0).(map[string]any); return ok, nil },
		"is_string":   func(a []any) (any, error) { _, ok := arg(a, 0).(string); return ok, nil },
		"is_number":   biIsNumber,
		"is_boolean":  func(a []any) (any, error) { _, ok := arg(a, 0).(bool); return ok, nil },
		"is_empty":    biIsEmpty,
		"to_string":   biToString,
		"to_number":   biToNumber,
		"to_boolean":  biToBoolean,
		"to_array":    biToArray,
		"coalesce":    biCoalesce,
		"default":     biDefault,
		"if_else":     biIfElse,
		"is_finite":   biIsFinite,
		"is_integer":  biIsInteger,
		"is_nan":      biIsNaN,
		"is_truthy":   func(a []any) (any, error) { return Truthy(arg(a, 0)), nil },
		"is_falsy":    func(a []any) (any, error) { return !Truthy(arg(a, 0)), nil },
		"switch":      biSwitch,

		// Utilities
		"json_encode":   biJSONEncode,
		"json_decode":   biJSONDecode,
		"base64_encode": biBase64Encode,
		"base64_decode": biBase64Decode,
		"url_encode":    biURLEncode,
		"url_decode":    biURLDecode,
		"uuid":          func(a []any) (any, error) { return uuid.NewString(), nil },
		"match":         biMatch,
		"test":          biTest,
		"match_all":     biMatchAll,
		"hash":          biHash,
		"pretty":        biPretty,
	}
}

func arg(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

func toStr(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func toNum(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toArr(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// Truthy implements the language's truthiness rule: null/false/""/0/empty
// array/empty object are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) != 0
	case map[string]any:
		return len(t) != 0
	default:
		return true
	}
}

func fn1str(f func(string) string) BuiltinFunc {
	return func(a []any) (any, error) { return f(toStr(arg(a, 0))), nil }
}

func fn1num(f func(float64) float64) BuiltinFunc {
	return func(a []any) (any, error) { return f(toNum(arg(a, 0))), nil }
}

// --- Strings -------------------------------------------------------------

func biReplace(a []any) (any, error) {
	return strings.ReplaceAll(toStr(arg(a, 0)), toStr(arg(a, 1)), toStr(arg(a, 2))), nil
}
func biSplit(a []any) (any, error) {
	parts := strings.Split(toStr(arg(a, 0)), toStr(arg(a, 1)))
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}
func biJoin(a []any) (any, error) {
	sep := toStr(arg(a, 1))
	var parts []string
	for _, v := range toArr(arg(a, 0)) {
		parts = append(parts, toStr(v))
	}
	return strings.Join(parts, sep), nil
}
func biTruncate(a []any) (any, error) {
	s := toStr(arg(a, 0))
	n := int(toNum(arg(a, 1)))
	if n < 0 || len(s) <= n {
		return s, nil
	}
	return s[:n] + "…", nil
}
func biConcat(a []any) (any, error) {
	var sb strings.Builder
	for _, v := range a {
		sb.WriteString(toStr(v))
	}
	return sb.String(), nil
}
func biIncludes(a []any) (any, error) {
	return strings.Contains(toStr(arg(a, 0)), toStr(arg(a, 1))), nil
}
func biStartsWith(a []any) (any, error) {
	return strings.HasPrefix(toStr(arg(a, 0)), toStr(arg(a, 1))), nil
}
func biEndsWith(a []any) (any, error) {
	return strings.HasSuffix(toStr(arg(a, 0)), toStr(arg(a, 1))), nil
}
func biSubstring(a []any) (any, error) {
	s := toStr(arg(a, 0))
	start := clampIdx(int(toNum(arg(a, 1))), len(s))
	end := len(s)
	if len(a) > 2 {
		end = clampIdx(int(toNum(arg(a, 2))), len(s))
	}
	if start > end {
		return "", nil
	}
	return s[start:end], nil
}
func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
func biPadStart(a []any) (any, error) {
	s := toStr(arg(a, 0))
	n := int(toNum(arg(a, 1)))
	pad := " "
	if len(a) > 2 {
		pad = toStr(arg(a, 2))
	}
	for len(s) < n && pad != "" {
		s = pad + s
	}
	return s, nil
}
func biPadEnd(a []any) (any, error) {
	s := toStr(arg(a, 0))
	n := int(toNum(arg(a, 1)))
	pad := " "
	if len(a) > 2 {
		pad = toStr(arg(a, 2))
	}
	for len(s) < n && pad != "" {
		s = s + pad
	}
	return s, nil
}
func biRepeat(a []any) (any, error) {
	n := int(toNum(arg(a, 1)))
	if n < 0 {
		n = 0
	}
	return strings.Repeat(toStr(arg(a, 0)), n), nil
}
func biCharAt(a []any) (any, error) {
	s := []rune(toStr(arg(a, 0)))
	i := int(toNum(arg(a, 1)))
	if i < 0 || i >= len(s) {
		return "", nil
	}
	return string(s[i]), nil
}
func biLen(a []any) (any, error) {
	v := arg(a, 0)
	switch t := v.(type) {
	case string:
		return float64(len([]rune(t))), nil
	case []any:
		return float64(len(t)), nil
	case map[string]any:
		return float64(len(t)), nil
	default:
		return float64(0), nil
	}
}

// --- Arrays ----------------------------------------------------------------

func biFirst(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	if len(arr) == 0 {
		return nil, nil
	}
	return arr[0], nil
}
func biLast(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	if len(arr) == 0 {
		return nil, nil
	}
	return arr[len(arr)-1], nil
}
func biSlice(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	start := clampIdx(int(toNum(arg(a, 1))), len(arr))
	end := len(arr)
	if len(a) > 2 {
		end = clampIdx(int(toNum(arg(a, 2))), len(arr))
	}
	if start > end {
		return []any{}, nil
	}
	return append([]any{}, arr[start:end]...), nil
}
func biFlatten(a []any) (any, error) {
	var out []any
	var walk func([]any)
	walk = func(arr []any) {
		for _, v := range arr {
			if sub, ok := v.([]any); ok {
				walk(sub)
			} else {
				out = append(out, v)
			}
		}
	}
	walk(toArr(arg(a, 0)))
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biUnique(a []any) (any, error) {
	var out []any
	seen := map[string]bool{}
	for _, v := range toArr(arg(a, 0)) {
		key := toStr(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biReverse(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	out := make([]any, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return out, nil
}
func biContains(a []any) (any, error) {
	target := arg(a, 1)
	for _, v := range toArr(arg(a, 0)) {
		if toStr(v) == toStr(target) {
			return true, nil
		}
	}
	return false, nil
}
func biIndexOf(a []any) (any, error) {
	target := arg(a, 1)
	for i, v := range toArr(arg(a, 0)) {
		if toStr(v) == toStr(target) {
			return float64(i), nil
		}
	}
	return float64(-1), nil
}
func biSort(a []any) (any, error) {
	arr := append([]any{}, toArr(arg(a, 0))...)
	key := ""
	if len(a) > 1 {
		key = toStr(arg(a, 1))
	}
	dir := "asc"
	if len(a) > 2 {
		dir = toStr(arg(a, 2))
	}
	keyOf := func(v any) any {
		if key == "" {
			return v
		}
		if m, ok := v.(map[string]any); ok {
			return m[key]
		}
		return v
	}
	sort.SliceStable(arr, func(i, j int) bool {
		vi, vj := keyOf(arr[i]), keyOf(arr[j])
		si, sj := toStr(vi), toStr(vj)
		_, numI := vi.(float64)
		_, numJ := vj.(float64)
		var less bool
		if numI && numJ {
			less = toNum(vi) < toNum(vj)
		} else {
			less = si < sj
		}
		if dir == "desc" {
			return !less
		}
		return less
	})
	return arr, nil
}
func biCompact(a []any) (any, error) {
	var out []any
	for _, v := range toArr(arg(a, 0)) {
		if Truthy(v) {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biAt(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	i := int(toNum(arg(a, 1)))
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return nil, nil
	}
	return arr[i], nil
}
func biEvery(a []any) (any, error) {
	for _, v := range toArr(arg(a, 0)) {
		if !Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}
func biSome(a []any) (any, error) {
	for _, v := range toArr(arg(a, 0)) {
		if Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}
func biFind(a []any) (any, error) {
	target := arg(a, 1)
	for _, v := range toArr(arg(a, 0)) {
		if toStr(v) == toStr(target) {
			return v, nil
		}
	}
	return nil, nil
}
func biTake(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	n := int(toNum(arg(a, 1)))
	if n < 0 {
		n = 0
	}
	if n > len(arr) {
		n = len(arr)
	}
	return append([]any{}, arr[:n]...), nil
}
func biSkip(a []any) (any, error) {
	arr := toArr(arg(a, 0))
	n := int(toNum(arg(a, 1)))
	if n < 0 {
		n = 0
	}
	if n > len(arr) {
		n = len(arr)
	}
	return append([]any{}, arr[n:]...), nil
}
func biRange(a []any) (any, error) {
	start := toNum(arg(a, 0))
	end := toNum(arg(a, 1))
	step := 1.0
	if len(a) > 2 {
		step = toNum(arg(a, 2))
	}
	if step == 0 {
		return nil, fmt.Errorf("range: step must not be zero")
	}
	var out []any
	if step > 0 {
		for v := start; v < end; v += step {
			out = append(out, v)
		}
	} else {
		for v := start; v > end; v += step {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// --- Math ------------------------------------------------------------------

func biMin(a []any) (any, error) {
	nums := numArgs(a)
	if len(nums) == 0 {
		return nil, nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m, nil
}
func biMax(a []any) (any, error) {
	nums := numArgs(a)
	if len(nums) == 0 {
		return nil, nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m, nil
}
func numArgs(a []any) []float64 {
	var out []float64
	if len(a) == 1 {
		if arr, ok := a[0].([]any); ok {
			for _, v := range arr {
				out = append(out, toNum(v))
			}
			return out
		}
	}
	for _, v := range a {
		out = append(out, toNum(v))
	}
	return out
}
func biSum(a []any) (any, error) {
	var s float64
	for _, n := range numArgs(a) {
		s += n
	}
	return s, nil
}
func biAvg(a []any) (any, error) {
	nums := numArgs(a)
	if len(nums) == 0 {
		return float64(0), nil
	}
	var s float64
	for _, n := range nums {
		s += n
	}
	return s / float64(len(nums)), nil
}
func biRound(a []any) (any, error) {
	n := toNum(arg(a, 0))
	decimals := 0
	if len(a) > 1 {
		decimals = int(toNum(arg(a, 1)))
	}
	mult := math.Pow(10, float64(decimals))
	return math.Round(n*mult) / mult, nil
}
func biPow(a []any) (any, error) { return math.Pow(toNum(arg(a, 0)), toNum(arg(a, 1))), nil }
func biRandom(a []any) (any, error) { return rand.Float64(), nil }
func biRandomInt(a []any) (any, error) {
	lo := int(toNum(arg(a, 0)))
	hi := int(toNum(arg(a, 1)))
	if hi <= lo {
		return float64(lo), nil
	}
	return float64(lo + rand.Intn(hi-lo+1)), nil
}
func biClamp(a []any) (any, error) {
	v, lo, hi := toNum(arg(a, 0)), toNum(arg(a, 1)), toNum(arg(a, 2))
	if v < lo {
		return lo, nil
	}
	if v > hi {
		return hi, nil
	}
	return v, nil
}
func biMod(a []any) (any, error) {
	x, y := toNum(arg(a, 0)), toNum(arg(a, 1))
	if y == 0 {
		return nil, fmt.Errorf("mod: division by zero")
	}
	return math.Mod(x, y), nil
}
func biSign(a []any) (any, error) {
	n := toNum(arg(a, 0))
	switch {
	case n > 0:
		return float64(1), nil
	case n < 0:
		return float64(-1), nil
	default:
		return float64(0), nil
	}
}
func biPercent(a []any) (any, error) {
	part, whole := toNum(arg(a, 0)), toNum(arg(a, 1))
	if whole == 0 {
		return float64(0), nil
	}
	return part / whole * 100, nil
}

// --- Time --------------------------------------------------------------

// timeNow is a package-level indirection so evaluation stays testable
// without depending on wall-clock granularity.
var timeNow = time.Now

func biNow(a []any) (any, error) { return timeNow().UTC().Format(time.RFC3339), nil }
func biDate(a []any) (any, error) { return timeNow().UTC().Format("2006-01-02"), nil }
func biTimestamp(a []any) (any, error) {
	t, err := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	return float64(t.UnixMilli()), nil
}
func biFromTimestamp(a []any) (any, error) {
	ms := toNum(arg(a, 0))
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339), nil
}
func biParseDate(a []any) (any, error) {
	layout := time.RFC3339
	if len(a) > 1 {
		layout = toStr(arg(a, 1))
	}
	t, err := time.Parse(layout, toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	return t.UTC().Format(time.RFC3339), nil
}
func biFormatDate(a []any) (any, error) {
	t, err := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	layout := "2006-01-02"
	if len(a) > 1 {
		layout = toStr(arg(a, 1))
	}
	return t.Format(layout), nil
}
func biAddTime(a []any) (any, error) {
	t, err := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	d := time.Duration(toNum(arg(a, 1))) * time.Millisecond
	return t.Add(d).UTC().Format(time.RFC3339), nil
}
func biSubtractTime(a []any) (any, error) {
	t, err := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	d := time.Duration(toNum(arg(a, 1))) * time.Millisecond
	return t.Add(-d).UTC().Format(time.RFC3339), nil
}
func biDiff(a []any) (any, error) {
	t1, err1 := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	t2, err2 := time.Parse(time.RFC3339, toStr(arg(a, 1)))
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	unit := "ms"
	if len(a) > 2 {
		unit = toStr(arg(a, 2))
	}
	d := t2.Sub(t1)
	switch unit {
	case "s", "seconds":
		return d.Seconds(), nil
	case "m", "minutes":
		return d.Minutes(), nil
	case "h", "hours":
		return d.Hours(), nil
	default:
		return float64(d.Milliseconds()), nil
	}
}
func biIsBefore(a []any) (any, error) {
	t1, err1 := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	t2, err2 := time.Parse(time.RFC3339, toStr(arg(a, 1)))
	if err1 != nil || err2 != nil {
		return false, nil
	}
	return t1.Before(t2), nil
}
func biIsAfter(a []any) (any, error) {
	t1, err1 := time.Parse(time.RFC3339, toStr(arg(a, 0)))
	t2, err2 := time.Parse(time.RFC3339, toStr(arg(a, 1)))
	if err1 != nil || err2 != nil {
		return false, nil
	}
	return t1.After(t2), nil
}

// --- Objects ---------------------------------------------------------------

func biKeys(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	var out []any
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biValues(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	keysRaw, _ := biKeys(a)
	var out []any
	for _, k := range keysRaw.([]any) {
		out = append(out, m[k.(string)])
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biEntries(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	keysRaw, _ := biKeys(a)
	var out []any
	for _, k := range keysRaw.([]any) {
		out = append(out, []any{k, m[k.(string)]})
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
func biFromEntries(a []any) (any, error) {
	out := map[string]any{}
	for _, pair := range toArr(arg(a, 0)) {
		p, ok := pair.([]any)
		if !ok || len(p) < 2 {
			continue
		}
		out[toStr(p[0])] = p[1]
	}
	return out, nil
}
// biGet and biHas round-trip obj through JSON so gjson's dot-path
// traversal (`a.b.c`, array indices) can do the lookup instead of a
// hand-rolled map walk.
func biGet(a []any) (any, error) {
	res, ok := gjsonLookup(arg(a, 0), toStr(arg(a, 1)))
	if !ok {
		if len(a) > 2 {
			return arg(a, 2), nil
		}
		return nil, nil
	}
	return res.Value(), nil
}
func biHas(a []any) (any, error) {
	_, ok := gjsonLookup(arg(a, 0), toStr(arg(a, 1)))
	return ok, nil
}

func gjsonLookup(obj any, path string) (gjson.Result, bool) {
	b, err := json.Marshal(obj)
	if err != nil {
		return gjson.Result{}, false
	}
	res := gjson.GetBytes(b, path)
	return res, res.Exists()
}
func biMerge(a []any) (any, error) {
	out := map[string]any{}
	for _, v := range a {
		if m, ok := v.(map[string]any); ok {
			for k, mv := range m {
				out[k] = mv
			}
		}
	}
	return out, nil
}
func biPick(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	out := map[string]any{}
	for _, k := range toArr(arg(a, 1)) {
		key := toStr(k)
		if v, ok := m[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}
func biOmit(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	omitSet := map[string]bool{}
	for _, k := range toArr(arg(a, 1)) {
		omitSet[toStr(k)] = true
	}
	out := map[string]any{}
	for k, v := range m {
		if !omitSet[k] {
			out[k] = v
		}
	}
	return out, nil
}
func biSize(a []any) (any, error) { return biLen(a) }
func biSet(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	out := map[string]any{}
	for k, v := range m {
		out[k] = v
	}
	out[toStr(arg(a, 1))] = arg(a, 2)
	return out, nil
}
func biDelete(a []any) (any, error) {
	m, _ := arg(a, 0).(map[string]any)
	out := map[string]any{}
	key := toStr(arg(a, 1))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out, nil
}
func biEquals(a []any) (any, error) {
	x, _ := json.Marshal(arg(a, 0))
	y, _ := json.Marshal(arg(a, 1))
	return string(x) == string(y), nil
}
func biClone(a []any) (any, error) {
	b, err := json.Marshal(arg(a, 0))
	if err != nil {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, nil
	}
	return out, nil
}

// --- Types -------------------------------------------------------------

func biTypeof(a []any) (any, error) {
	switch arg(a, 0).(type) {
	case nil:
		return "null", nil
	case []any:
		return "array", nil
	case map[string]any:
		return "object", nil
	case string:
		return "string", nil
	case float64:
		return "number", nil
	case bool:
		return "boolean", nil
	default:
		return "undefined", nil
	}
}
func biIsNumber(a []any) (any, error) {
	n, ok := arg(a, 0).(float64)
	return ok && !math.IsNaN(n), nil
}
func biIsEmpty(a []any) (any, error) {
	switch t := arg(a, 0).(type) {
	case nil:
		return true, nil
	case string:
		return t == "", nil
	case []any:
		return len(t) == 0, nil
	case map[string]any:
		return len(t) == 0, nil
	default:
		return false, nil
	}
}
func biToString(a []any) (any, error) { return toStr(arg(a, 0)), nil }
func biToNumber(a []any) (any, error) {
	v := arg(a, 0)
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return float64(0), nil
		}
		return f, nil
	case bool:
		if t {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		return float64(0), nil
	}
}
func biToBoolean(a []any) (any, error) { return Truthy(arg(a, 0)), nil }
func biToArray(a []any) (any, error)   { return toArr(arg(a, 0)), nil }
func biCoalesce(a []any) (any, error) {
	for _, v := range a {
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}
func biDefault(a []any) (any, error) {
	v := arg(a, 0)
	if v == nil {
		return arg(a, 1), nil
	}
	return v, nil
}
func biIfElse(a []any) (any, error) {
	if Truthy(arg(a, 0)) {
		return arg(a, 1), nil
	}
	return arg(a, 2), nil
}
func biIsFinite(a []any) (any, error) {
	n, ok := arg(a, 0).(float64)
	return ok && !math.IsInf(n, 0) && !math.IsNaN(n), nil
}
func biIsInteger(a []any) (any, error) {
	n, ok := arg(a, 0).(float64)
	return ok && n == math.Trunc(n), nil
}
func biIsNaN(a []any) (any, error) {
	n, ok := arg(a, 0).(float64)
	return ok && math.IsNaN(n), nil
}
func biSwitch(a []any) (any, error) {
	val := arg(a, 0)
	cases, _ := arg(a, 1).(map[string]any)
	if v, ok := cases[toStr(val)]; ok {
		return v, nil
	}
	if len(a) > 2 {
		return arg(a, 2), nil
	}
	return nil, nil
}

// --- Utilities -----------------------------------------------------------

func biJSONEncode(a []any) (any, error) {
	b, err := json.Marshal(arg(a, 0))
	if err != nil {
		return nil, nil
	}
	return string(b), nil
}
func biJSONDecode(a []any) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(toStr(arg(a, 0))), &out); err != nil {
		return nil, nil
	}
	return out, nil
}
func biBase64Encode(a []any) (any, error) {
	return base64.StdEncoding.EncodeToString([]byte(toStr(arg(a, 0)))), nil
}
func biBase64Decode(a []any) (any, error) {
	b, err := base64.StdEncoding.DecodeString(toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	return string(b), nil
}
func biURLEncode(a []any) (any, error) { return url.QueryEscape(toStr(arg(a, 0))), nil }
func biURLDecode(a []any) (any, error) {
	s, err := url.QueryUnescape(toStr(arg(a, 0)))
	if err != nil {
		return nil, nil
	}
	return s, nil
}
func biMatch(a []any) (any, error) {
	re, err := regexp.Compile(toStr(arg(a, 1)))
	if err != nil {
		return nil, nil
	}
	m := re.FindStringSubmatch(toStr(arg(a, 0)))
	if m == nil {
		return nil, nil
	}
	out := make([]any, len(m))
	for i, s := range m {
		out[i] = s
	}
	return out, nil
}
func biTest(a []any) (any, error) {
	re, err := regexp.Compile(toStr(arg(a, 1)))
	if err != nil {
		return false, nil
	}
	return re.MatchString(toStr(arg(a, 0))), nil
}
func biMatchAll(a []any) (any, error) {
	re, err := regexp.Compile(toStr(arg(a, 1)))
	if err != nil {
		return []any{}, nil
	}
	all := re.FindAllStringSubmatch(toStr(arg(a, 0)), -1)
	out := make([]any, len(all))
	for i, m := range all {
		row := make([]any, len(m))
		for j, s := range m {
			row[j] = s
		}
		out[i] = row
	}
	return out, nil
}

// biHash implements a non-cryptographic djb2 hash, stringified as hex.
func biHash(a []any) (any, error) {
	s := toStr(arg(a, 0))
	var h uint32 = 5381
	for _, c := range []byte(s) {
		h = ((h << 5) + h) + uint32(c)
	}
	return strconv.FormatUint(uint64(h), 16), nil
}
func biPretty(a []any) (any, error) {
	b, err := json.Marshal(arg(a, 0))
	if err != nil {
		return "", nil
	}
	return string(pretty.Pretty(b)), nil
}
