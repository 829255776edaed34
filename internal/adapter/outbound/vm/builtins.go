package vm

import (
	"fmt"
	"sort"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

// DefaultBuiltins returns the builtin function table every Policy starts
// with (spec.md §4.8): the names from the README mapped onto the host's Go
// equivalents, plus "rule" (spec.md §4.6). Callers may override any entry
// by passing their own map into engine.NewPolicy and layering these in
// first.
func DefaultBuiltins() map[string]value.Value {
	m := map[string]value.Value{
		"abs":      value.FromFunction(value.Normal(builtinAbs)),
		"bool":     value.FromFunction(value.Normal(builtinBool)),
		"len":      value.FromFunction(value.Normal(builtinLen)),
		"min":      value.FromFunction(value.Normal(builtinMin)),
		"max":      value.FromFunction(value.Normal(builtinMax)),
		"sorted":   value.FromFunction(value.Normal(builtinSorted)),
		"set":      value.FromFunction(value.Normal(builtinSet)),
		"frozenset": value.FromFunction(value.Normal(builtinSet)),
		"str":      value.FromFunction(value.Normal(builtinStr)),
		"int":      value.FromFunction(value.Normal(builtinInt)),
		"float":    value.FromFunction(value.Normal(builtinFloat)),
		"range":    value.FromFunction(value.Normal(builtinRange)),
		"zip":      value.FromFunction(value.Normal(builtinZip)),
		"enumerate": value.FromFunction(value.Normal(builtinEnumerate)),
		"sum":      value.FromFunction(value.Normal(builtinSum)),
		"getattr":  value.FromFunction(value.Normal(builtinGetattr)),
		"hasattr":  value.FromFunction(value.Normal(builtinHasattr)),
		"isinstance": value.FromFunction(value.Normal(builtinIsinstance)),
		"type":     value.FromFunction(value.Normal(builtinType)),
		"tuple":    value.FromFunction(value.Normal(builtinTuple)),
		"list":     value.FromFunction(value.Normal(builtinList)),
		"dict":     value.FromFunction(value.Normal(builtinDict)),
	}
	m["rule"] = value.FromFunction(RuleBuiltin(nil))
	return m
}

func builtinAbs(args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsNumeric() {
		return value.Nothing, nil
	}
	switch args[0].Kind() {
	case value.KindInt:
		n := args[0].AsInt()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	default:
		f := args[0].AsFloat()
		if f < 0 {
			f = -f
		}
		return value.Float(f), nil
	}
}

func builtinBool(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Bool(false), nil
	}
	return value.Bool(args[0].Truthy()), nil
}

func builtinLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nothing, nil
	}
	switch args[0].Kind() {
	case value.KindStr:
		return value.Int(int64(len([]rune(args[0].AsStr())))), nil
	case value.KindBytes:
		return value.Int(int64(len(args[0].AsBytes()))), nil
	case value.KindSet:
		return value.Int(int64(args[0].AsSet().Len())), nil
	case value.KindObject:
		if s, ok := args[0].AsObject().(*seq); ok {
			return value.Int(int64(len(s.items))), nil
		}
		if d, ok := args[0].AsObject().(*dictObj); ok {
			return value.Int(int64(len(d.pairs))), nil
		}
		return value.Nothing, nil
	default:
		return value.Nothing, nil
	}
}

func builtinMin(args []value.Value) (value.Value, error) { return extremum(args, value.OrderLess) }
func builtinMax(args []value.Value) (value.Value, error) { return extremum(args, value.OrderGreater) }

// extremum implements both min() and max(): either over the single iterable
// argument, or over the full argument list (Python's dual calling
// convention), picking want (OrderLess for min, OrderGreater for max).
func extremum(args []value.Value, want value.Ordering) (value.Value, error) {
	items := args
	if len(args) == 1 {
		if sl, ok := toSlice(args[0]); ok {
			items = sl
		}
	}
	if len(items) == 0 {
		return value.Nothing, nil
	}
	best := items[0]
	for _, v := range items[1:] {
		ord, err := value.Compare(v, best)
		if err != nil {
			return value.Nothing, err
		}
		if ord == want {
			best = v
		}
	}
	return best, nil
}

func builtinSorted(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return newSeq("list", nil), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return newSeq("list", nil), nil
	}
	sorted := make([]value.Value, len(items))
	copy(sorted, items)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		ord, err := value.Compare(sorted[i], sorted[j])
		if err != nil {
			sortErr = err
		}
		return ord == value.OrderLess
	})
	if sortErr != nil {
		return value.Nothing, sortErr
	}
	return newSeq("list", sorted), nil
}

func builtinSet(args []value.Value) (value.Value, error) {
	var items []value.Value
	if len(args) == 1 {
		sl, ok := toSlice(args[0])
		if !ok {
			return value.Nothing, nil
		}
		items = sl
	}
	s, err := value.NewSet(items...)
	if err != nil {
		return value.Nothing, err
	}
	return value.FromSet(s), nil
}

func builtinStr(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Str(""), nil
	}
	v := args[0]
	if v.Kind() == value.KindStr {
		return v, nil
	}
	if v.Kind() == value.KindBytes {
		return value.Str(string(v.AsBytes())), nil
	}
	return value.Str(v.String()), nil
}

func builtinInt(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Int(0), nil
	}
	switch args[0].Kind() {
	case value.KindInt:
		return args[0], nil
	case value.KindFloat:
		return value.Int(int64(args[0].AsFloat())), nil
	case value.KindBool:
		if args[0].AsBool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.KindStr:
		var n int64
		if _, err := fmt.Sscanf(args[0].AsStr(), "%d", &n); err != nil {
			return value.Nothing, nil
		}
		return value.Int(n), nil
	default:
		return value.Nothing, nil
	}
}

func builtinFloat(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Float(0), nil
	}
	switch args[0].Kind() {
	case value.KindFloat:
		return args[0], nil
	case value.KindInt:
		return value.Float(float64(args[0].AsInt())), nil
	case value.KindStr:
		var f float64
		if _, err := fmt.Sscanf(args[0].AsStr(), "%g", &f); err != nil {
			return value.Nothing, nil
		}
		return value.Float(f), nil
	default:
		return value.Nothing, nil
	}
}

func builtinRange(args []value.Value) (value.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		stop = args[0].AsInt()
	case 2:
		start, stop = args[0].AsInt(), args[1].AsInt()
	case 3:
		start, stop, step = args[0].AsInt(), args[1].AsInt(), args[2].AsInt()
		if step == 0 {
			return value.Nothing, value.ErrDivByZero
		}
	default:
		return newSeq("range", nil), nil
	}
	var items []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			items = append(items, value.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			items = append(items, value.Int(i))
		}
	}
	return newSeq("range", items), nil
}

func builtinZip(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return newSeq("zip", nil), nil
	}
	lists := make([][]value.Value, len(args))
	shortest := -1
	for i, a := range args {
		sl, ok := toSlice(a)
		if !ok {
			return newSeq("zip", nil), nil
		}
		lists[i] = sl
		if shortest == -1 || len(sl) < shortest {
			shortest = len(sl)
		}
	}
	out := make([]value.Value, shortest)
	for i := 0; i < shortest; i++ {
		row := make([]value.Value, len(lists))
		for j := range lists {
			row[j] = lists[j][i]
		}
		out[i] = newSeq("tuple", row)
	}
	return newSeq("zip", out), nil
}

func builtinEnumerate(args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return newSeq("list", nil), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return newSeq("list", nil), nil
	}
	start := int64(0)
	if len(args) == 2 && args[1].Kind() == value.KindInt {
		start = args[1].AsInt()
	}
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[i] = newSeq("tuple", []value.Value{value.Int(start + int64(i)), v})
	}
	return newSeq("list", out), nil
}

func builtinSum(args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return value.Int(0), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return value.Int(0), nil
	}
	var total value.Value = value.Int(0)
	if len(args) == 2 {
		total = args[1]
	}
	for _, v := range items {
		r, err := value.Add(total, v)
		if err != nil {
			return value.Nothing, err
		}
		total = r
	}
	return total, nil
}

func builtinGetattr(args []value.Value) (value.Value, error) {
	if len(args) < 2 || args[1].Kind() != value.KindStr {
		return value.Nothing, nil
	}
	target, name := args[0], args[1].AsStr()
	var fallback value.Value = value.Nothing
	hasFallback := len(args) >= 3
	if hasFallback {
		fallback = args[2]
	}
	if target.Kind() != value.KindObject {
		return fallback, nil
	}
	v, err := target.AsObject().GetAttr(name)
	if err != nil {
		return fallback, nil
	}
	return v, nil
}

func builtinHasattr(args []value.Value) (value.Value, error) {
	if len(args) != 2 || args[1].Kind() != value.KindStr {
		return value.Bool(false), nil
	}
	if args[0].Kind() != value.KindObject {
		return value.Bool(false), nil
	}
	_, err := args[0].AsObject().GetAttr(args[1].AsStr())
	return value.Bool(err == nil), nil
}

func builtinIsinstance(args []value.Value) (value.Value, error) {
	if len(args) != 2 || args[1].Kind() != value.KindStr {
		return value.Bool(false), nil
	}
	return value.Bool(typeName(args[0]) == args[1].AsStr()), nil
}

func builtinType(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nothing, nil
	}
	return value.Str(typeName(args[0])), nil
}

func typeName(v value.Value) string {
	switch v.Kind() {
	case value.KindObject:
		switch o := v.AsObject().(type) {
		case *seq:
			return o.label
		case *dictObj:
			return "dict"
		default:
			return "object"
		}
	default:
		return v.Kind().String()
	}
}

func builtinTuple(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return newSeq("tuple", nil), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return newSeq("tuple", nil), nil
	}
	return newSeq("tuple", items), nil
}

func builtinList(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return newSeq("list", nil), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return newSeq("list", nil), nil
	}
	return newSeq("list", items), nil
}

func builtinDict(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return newDict(nil), nil
	}
	items, ok := toSlice(args[0])
	if !ok {
		return newDict(nil), nil
	}
	pairs := make([]pair, 0, len(items))
	for _, it := range items {
		entry, ok := toSlice(it)
		if !ok || len(entry) != 2 {
			continue
		}
		pairs = append(pairs, pair{key: entry[0], val: entry[1]})
	}
	return newDict(pairs), nil
}
