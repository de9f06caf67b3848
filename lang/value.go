package lang

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
)

// Values produced by evaluation are one of:
//
//	Missing           absent name or member
//	nil               null
//	bool, float64, string
//	[]any             array
//	*Object           object (also map[string]any from host data)
//	Func              callable
//	*Future           deferred value
//
// Any other host value is reached through reflection.

type missing struct{}

func (missing) String() string { return "undefined" }

// Missing is the value of an absent identifier or member.
var Missing any = missing{}

// IsMissing reports whether v is [Missing].
func IsMissing(v any) bool {
	_, ok := v.(missing)

	return ok
}

// Func is a callable value.
type Func func(args ...any) (any, error)

// AsFunc reports whether v is callable and returns it as a [Func].
// Host Go functions of any signature are adapted with [reflect].
func AsFunc(v any) (Func, bool) {
	switch f := v.(type) {
	case Func:
		return f, f != nil
	case func(...any) (any, error):
		return Func(f), f != nil
	case *Bound:
		if f == nil {
			return nil, false
		}

		return f.Call, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}

	return reflectFunc(rv), true
}

// Call invokes fn, converting a panic into an [ErrHostPanic] error.
func Call(fn Func, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, ErrHostPanic.
				Wrap(fmt.Errorf("%v", r)).
				With(slog.Int("args", len(args)))
		}
	}()

	return fn(args...)
}

// reflectFunc adapts an arbitrary Go function.
//
// Missing trailing arguments are zero values and surplus arguments are
// dropped. Integer and float results become float64. A trailing non-nil error
// result is returned as the error.
func reflectFunc(rv reflect.Value) Func {
	rt := rv.Type()

	return func(args ...any) (any, error) {
		in, err := convertArgs(rt, args)
		if err != nil {
			return nil, err
		}

		out := rv.Call(in)

		if n := len(out); n > 0 && rt.Out(n-1) == errorType {
			if e := out[n-1]; !e.IsNil() {
				err, _ := e.Interface().(error)

				return nil, err
			}

			out = out[:n-1]
		}

		switch len(out) {
		case 0:
			return Missing, nil
		case 1:
			return Normalize(out[0].Interface()), nil
		}

		results := make([]any, len(out))
		for i, o := range out {
			results[i] = Normalize(o.Interface())
		}

		return results, nil
	}
}

var errorType = reflect.TypeFor[error]()

func convertArgs(rt reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := rt.NumIn()
	if rt.IsVariadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, max(fixed, len(args)))

	for i := range fixed {
		var arg any = Missing
		if i < len(args) {
			arg = args[i]
		}

		v, err := convertArg(arg, rt.In(i))
		if err != nil {
			return nil, ErrArgumentType.
				Wrap(err).
				With(slog.Int("position", i))
		}

		in = append(in, v)
	}

	if rt.IsVariadic() && len(args) > fixed {
		elem := rt.In(fixed).Elem()

		for i, arg := range args[fixed:] {
			v, err := convertArg(arg, elem)
			if err != nil {
				return nil, ErrArgumentType.
					Wrap(err).
					With(slog.Int("position", fixed+i))
			}

			in = append(in, v)
		}
	}

	return in, nil
}

func convertArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil || IsMissing(arg) {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(arg)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch {
	case isNumericKind(t.Kind()) && isNumericKind(rv.Kind()):
		return rv.Convert(t), nil

	case t.Kind() == reflect.String && (isNumericKind(rv.Kind()) ||
		rv.Kind() == reflect.Bool || rv.Kind() == reflect.String):
		return reflect.ValueOf(ToString(arg)).Convert(t), nil

	case t.Kind() == reflect.Bool:
		return reflect.ValueOf(Truthy(arg)).Convert(t), nil

	case t.Kind() == reflect.Func:
		if fn, ok := AsFunc(arg); ok {
			return typedFunc(fn, t), nil
		}

	case t.Kind() == reflect.Slice && rv.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())

		for i := range rv.Len() {
			v, err := convertArg(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(v)
		}

		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

// typedFunc wraps fn as a Go function of type t, so that callables can be
// passed to host functions expecting typed callbacks.
func typedFunc(fn Func, t reflect.Type) reflect.Value {
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = Normalize(v.Interface())
		}

		result, err := Call(fn, args...)

		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			ot := t.Out(i)

			switch {
			case ot == errorType && err != nil:
				out[i] = reflect.ValueOf(&err).Elem()
			case i == 0 && err == nil:
				v, cerr := convertArg(result, ot)
				if cerr != nil {
					v = reflect.Zero(ot)
				}

				out[i] = v
			default:
				out[i] = reflect.Zero(ot)
			}
		}

		return out
	})
}

func isNumericKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// Normalize converts host numbers to float64 and recursively normalizes the
// elements of []any and map[string]any values.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, Func, *Bound, *Object, *Future, *Frame:
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}

		return out
	}

	if n, ok := number(v); ok {
		return n
	}

	return v
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}

	return 0, false
}

// Object is the ordered, concurrency-safe object built for each rendered bloc
// and for object literals.
type Object struct {
	mu   sync.RWMutex
	keys []string
	vals map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	v, ok := o.vals[key]

	return v, ok
}

// Set stores v under key, keeping the position of an existing key.
func (o *Object) Set(key string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.vals[key] = v
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	return slices.Clone(o.keys)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.keys)
}

// MarshalYAML encodes the object as an ordered mapping.
func (o *Object) MarshalYAML() (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ms := make(yaml.MapSlice, len(o.keys))
	for i, k := range o.keys {
		ms[i] = yaml.MapItem{Key: k, Value: o.vals[k]}
	}

	return ms, nil
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil, missing:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	}

	if n, ok := number(v); ok {
		return n != 0
	}

	return true
}

// ToNumber converts v to a number. Values with no numeric form become NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case missing:
		return math.NaN()
	case bool:
		if x {
			return 1
		}

		return 0
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}

		return f
	}

	if n, ok := number(v); ok {
		return n
	}

	return math.NaN()
}

// ToString converts v to its string form.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case missing:
		return "undefined"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if e != nil && !IsMissing(e) {
				parts[i] = ToString(e)
			}
		}

		return strings.Join(parts, ",")
	case *Object, map[string]any:
		return "[object Object]"
	case Func, *Bound:
		return "[function]"
	case *Future:
		return "[deferred]"
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}

	if n, ok := number(v); ok {
		return formatNumber(n)
	}

	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}

// stringish reports whether v converts to a string rather than a number
// under the + operator.
func stringish(v any) bool {
	switch v.(type) {
	case string, []any, *Object, map[string]any, error:
		return true
	}

	return false
}

// LooseEqual implements ==. Null and missing equal each other, a number
// equals a string with the same numeric value, and composite values are
// compared deeply.
func LooseEqual(a, b any) bool {
	an, aok := number(a)
	bn, bok := number(b)

	switch {
	case (a == nil || IsMissing(a)) && (b == nil || IsMissing(b)):
		return true
	case a == nil || IsMissing(a) || b == nil || IsMissing(b):
		return false
	case aok && bok:
		return an == bn
	case aok:
		if s, ok := b.(string); ok {
			return an == ToNumber(s)
		}
	case bok:
		if s, ok := a.(string); ok {
			return bn == ToNumber(s)
		}
	}

	if ao, ok := a.(*Object); ok {
		bo, ok := b.(*Object)

		return ok && (ao == bo || objectsEqual(ao, bo))
	}

	return reflect.DeepEqual(a, b)
}

func objectsEqual(a, b *Object) bool {
	ak, bk := a.Keys(), b.Keys()
	if len(ak) != len(bk) {
		return false
	}

	for _, k := range ak {
		av, _ := a.Get(k)

		bv, ok := b.Get(k)
		if !ok || !LooseEqual(av, bv) {
			return false
		}
	}

	return true
}

// Member returns the member of v named name, or [Missing].
func Member(v any, name string) any {
	switch x := v.(type) {
	case nil, missing:
		return Missing
	case *Object:
		if r, ok := x.Get(name); ok {
			return r
		}

		return Missing
	case map[string]any:
		if r, ok := x[name]; ok {
			return r
		}

		return Missing
	case *Frame:
		if r, ok := x.Lookup(name); ok {
			return r
		}

		return Missing
	case []any:
		if name == "length" {
			return float64(len(x))
		}

		return Missing
	case string:
		if name == "length" {
			return float64(utf8.RuneCountInString(x))
		}

		return Missing
	}

	return reflectMember(reflect.ValueOf(v), name)
}

func reflectMember(rv reflect.Value, name string) any {
	if m := rv.MethodByName(name); m.IsValid() {
		return m.Interface()
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Missing
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Missing
		}

		r := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !r.IsValid() {
			return Missing
		}

		return Normalize(r.Interface())

	case reflect.Struct:
		f, ok := rv.Type().FieldByName(name)
		if !ok || !f.IsExported() {
			return Missing
		}

		return Normalize(rv.FieldByIndex(f.Index).Interface())

	case reflect.Slice, reflect.Array, reflect.String:
		if name == "length" {
			return float64(rv.Len())
		}
	}

	return Missing
}

// Element returns v[key]. String keys select members; integral numeric keys
// select array elements and characters.
func Element(v any, key any) any {
	if v == nil || IsMissing(v) {
		return Missing
	}

	if s, ok := key.(string); ok {
		return Member(v, s)
	}

	f, ok := number(key)
	if !ok || f != math.Trunc(f) {
		return Member(v, ToString(key))
	}

	i := int(f)

	switch x := v.(type) {
	case []any:
		if i < 0 || i >= len(x) {
			return Missing
		}

		return x[i]
	case string:
		r := []rune(x)
		if i < 0 || i >= len(r) {
			return Missing
		}

		return string(r[i])
	case *Object, map[string]any, *Frame:
		return Member(v, ToString(key))
	}

	rv := reflect.Indirect(reflect.ValueOf(v))

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if i < 0 || i >= rv.Len() {
			return Missing
		}

		return Normalize(rv.Index(i).Interface())
	}

	return Member(v, ToString(key))
}
