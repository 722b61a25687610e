package stdlib

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func registerStructs(r *Registry) {
	r.RegisterStruct(setStruct())
	r.RegisterStruct(stackStruct())
	r.RegisterStruct(lruStruct())
}

// key normalizes a value for use as a set member or cache key. Scalars
// compare by value; arrays, objects and functions by identity.
func key(v evaluator.Value) evaluator.Value {
	return evaluator.Raw(v)
}

func sortValues(vals []evaluator.Value) []evaluator.Value {
	sort.SliceStable(vals, func(i, j int) bool {
		if c := evaluator.Compare(vals[i], vals[j]); c != 0 {
			return c < 0
		}
		return evaluator.ToString(vals[i]) < evaluator.ToString(vals[j])
	})
	return vals
}

func render(in *evaluator.Interpreter, name string, vals []evaluator.Value) (evaluator.Value, error) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, err := in.Stringify(v)
		if err != nil {
			return nil, err
		}
		if _, isStr := evaluator.Raw(v).(evaluator.String); isStr {
			s = `"` + s + `"`
		}
		parts[i] = s
	}
	return str(name + "(" + strings.Join(parts, ", ") + ")"), nil
}

// --- Set ---

func setStruct() *evaluator.StdStruct {
	return &evaluator.StdStruct{
		Name: "Set",
		Doc:  "new Set(values...) unordered collection of distinct values",
		Ctor: func(_ *evaluator.Interpreter, vals []evaluator.Value) (any, error) {
			s := mapset.NewThreadUnsafeSet[evaluator.Value]()
			for _, v := range vals {
				s.Add(key(v))
			}
			return s, nil
		},
		Methods: map[string]evaluator.StdMethodFunc{
			"add": method("add", 1, variadic, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				s := setOf(self)
				for _, v := range a.vals {
					s.Add(key(v))
				}
				return self, nil
			}),
			"remove": method("remove", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				s := setOf(self)
				k := key(a.vals[0])
				had := s.Contains(k)
				s.Remove(k)
				return boolean(had), nil
			}),
			"has": method("has", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				return boolean(setOf(self).Contains(key(a.vals[0]))), nil
			}),
			"union": method("union", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				other, err := otherSet(self, a)
				if err != nil {
					return nil, err
				}
				return &evaluator.StdInstance{Type: self.Type, Data: setOf(self).Union(other)}, nil
			}),
			"intersect": method("intersect", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				other, err := otherSet(self, a)
				if err != nil {
					return nil, err
				}
				return &evaluator.StdInstance{Type: self.Type, Data: setOf(self).Intersect(other)}, nil
			}),
			"clear": method("clear", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				setOf(self).Clear()
				return evaluator.Nil{}, nil
			}),
			"size": method("size", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return num(float64(setOf(self).Cardinality())), nil
			}),
			"items": method("items", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return evaluator.NewArray(sortValues(setOf(self).ToSlice())), nil
			}),
			"str": method("str", 0, 0, func(in *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return render(in, "Set", sortValues(setOf(self).ToSlice()))
			}),
		},
	}
}

func setOf(self *evaluator.StdInstance) mapset.Set[evaluator.Value] {
	return self.Data.(mapset.Set[evaluator.Value])
}

func otherSet(self *evaluator.StdInstance, a args) (mapset.Set[evaluator.Value], error) {
	other, ok := a.value(0).(*evaluator.StdInstance)
	if !ok || other.Type != self.Type {
		return nil, a.mismatch(0, "a Set")
	}
	return setOf(other), nil
}

// --- Stack ---

type stack struct {
	items []evaluator.Value
}

func stackStruct() *evaluator.StdStruct {
	return &evaluator.StdStruct{
		Name: "Stack",
		Doc:  "new Stack(values...) last-in first-out collection",
		Ctor: func(_ *evaluator.Interpreter, vals []evaluator.Value) (any, error) {
			st := &stack{}
			for _, v := range vals {
				st.items = append(st.items, plainValue(v))
			}
			return st, nil
		},
		Methods: map[string]evaluator.StdMethodFunc{
			"push": method("push", 1, variadic, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				st := stackOf(self)
				for _, v := range a.vals {
					st.items = append(st.items, plainValue(v))
				}
				return self, nil
			}),
			"pop": method("pop", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				st := stackOf(self)
				if len(st.items) == 0 {
					return nil, evaluator.Errorf(diagnostics.EIndexOutOfBounds, "%s: stack is empty", a.name)
				}
				top := st.items[len(st.items)-1]
				st.items = st.items[:len(st.items)-1]
				return top, nil
			}),
			"peek": method("peek", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				st := stackOf(self)
				if len(st.items) == 0 {
					return nil, evaluator.Errorf(diagnostics.EIndexOutOfBounds, "%s: stack is empty", a.name)
				}
				return st.items[len(st.items)-1], nil
			}),
			"clear": method("clear", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				stackOf(self).items = nil
				return evaluator.Nil{}, nil
			}),
			"size": method("size", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return num(float64(len(stackOf(self).items))), nil
			}),
			// items runs from the top of the stack down.
			"items": method("items", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return evaluator.NewArray(topDown(stackOf(self))), nil
			}),
			"str": method("str", 0, 0, func(in *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return render(in, "Stack", topDown(stackOf(self)))
			}),
		},
	}
}

func stackOf(self *evaluator.StdInstance) *stack {
	return self.Data.(*stack)
}

func topDown(st *stack) []evaluator.Value {
	out := make([]evaluator.Value, len(st.items))
	for i, v := range st.items {
		out[len(st.items)-1-i] = v
	}
	return out
}

// --- LRU ---

func lruStruct() *evaluator.StdStruct {
	return &evaluator.StdStruct{
		Name: "LRU",
		Doc:  "new LRU(capacity) cache evicting the least recently used key",
		Ctor: func(_ *evaluator.Interpreter, vals []evaluator.Value) (any, error) {
			a := args{name: "LRU", vals: vals}
			if err := checkArity("LRU", 1, 1, a.len()); err != nil {
				return nil, evaluator.Errorf(diagnostics.EInvalidConstructorArity, "%s", err.Error())
			}
			size, err := a.integer(0)
			if err != nil {
				return nil, err
			}
			if size <= 0 {
				return nil, evaluator.Errorf(diagnostics.EOutOfRange, "LRU: capacity must be positive, got %d", size)
			}
			cache, err := lru.New(size)
			if err != nil {
				return nil, evaluator.Errorf(diagnostics.EOutOfRange, "LRU: %s", err)
			}
			return cache, nil
		},
		Methods: map[string]evaluator.StdMethodFunc{
			// set returns true when the insert evicted an entry.
			"set": method("set", 2, 2, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				return boolean(cacheOf(self).Add(key(a.vals[0]), plainValue(a.vals[1]))), nil
			}),
			"get": method("get", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				if v, ok := cacheOf(self).Get(key(a.vals[0])); ok {
					return v.(evaluator.Value), nil
				}
				return evaluator.Nil{}, nil
			}),
			"has": method("has", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				return boolean(cacheOf(self).Contains(key(a.vals[0]))), nil
			}),
			"remove": method("remove", 1, 1, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error) {
				return boolean(cacheOf(self).Remove(key(a.vals[0]))), nil
			}),
			"clear": method("clear", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				cacheOf(self).Purge()
				return evaluator.Nil{}, nil
			}),
			"size": method("size", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return num(float64(cacheOf(self).Len())), nil
			}),
			// items lists keys from least to most recently used.
			"items": method("items", 0, 0, func(_ *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return evaluator.NewArray(cacheKeys(cacheOf(self))), nil
			}),
			"str": method("str", 0, 0, func(in *evaluator.Interpreter, self *evaluator.StdInstance, _ args) (evaluator.Value, error) {
				return render(in, "LRU", cacheKeys(cacheOf(self)))
			}),
		},
	}
}

func cacheOf(self *evaluator.StdInstance) *lru.Cache {
	return self.Data.(*lru.Cache)
}

func cacheKeys(c *lru.Cache) []evaluator.Value {
	keys := c.Keys()
	out := make([]evaluator.Value, len(keys))
	for i, k := range keys {
		out[i] = k.(evaluator.Value)
	}
	return out
}
