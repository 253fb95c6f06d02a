package arraydiff

import (
	"reflect"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func ints(vs ...int) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func TestDiff_SingleBatch(t *testing.T) {
	tests := []struct {
		name string
		new  []any
		old  []any
		want []Change
	}{
		{
			name: "insert in the middle",
			new:  ints(1, 2, 3, 4),
			old:  ints(1, 3, 4),
			want: []Change{{Op: Insert, Index: 1, Batch: ints(2)}},
		},
		{
			name: "remove from the middle",
			new:  ints(1, 3, 4),
			old:  ints(1, 2, 3, 4),
			want: []Change{{Op: Remove, Index: 1, Batch: ints(2)}},
		},
		{
			name: "append run",
			new:  ints(1, 2, 3, 4),
			old:  ints(1, 2),
			want: []Change{{Op: Insert, Index: 2, Batch: ints(3, 4)}},
		},
		{
			name: "from empty",
			new:  ints(1, 2),
			old:  nil,
			want: []Change{{Op: Insert, Index: 0, Batch: ints(1, 2)}},
		},
		{
			name: "to empty",
			new:  nil,
			old:  ints(1, 2),
			want: []Change{{Op: Remove, Index: 0, Batch: ints(1, 2)}},
		},
		{
			name: "pure replacement",
			new:  ints(7, 8, 3),
			old:  ints(1, 2, 3),
			want: []Change{{Op: Replace, Index: 0, Batch: ints(7, 8)}},
		},
		{
			name: "identical",
			new:  ints(1, 2, 3),
			old:  ints(1, 2, 3),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.new, tt.old)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.want)
			}
			if applied := Apply(tt.old, got); !reflect.DeepEqual(applied, nonNil(tt.new)) {
				t.Errorf("Apply() = %v, want %v", applied, tt.new)
			}
		})
	}
}

func TestDiff_PicksCheapestCandidate(t *testing.T) {
	// insert-biased and remove-biased both need two batches here; replace needs one
	newItems := ints(5, 6, 7)
	oldItems := ints(1, 2, 3)

	got := Diff(newItems, oldItems)
	if len(got) != 1 || got[0].Op != Replace {
		t.Fatalf("expected a single replace batch, got %+v", got)
	}
}

func TestDiff_NotMinimal(t *testing.T) {
	// a swap is two positional replacements; an LCS diff would report a move
	newItems := ints(2, 1, 3, 4)
	oldItems := ints(1, 2, 3, 4)

	got := Diff(newItems, oldItems)
	if !reflect.DeepEqual(Apply(oldItems, got), newItems) {
		t.Fatalf("Apply(Diff) mismatch: %+v", got)
	}
	if Size(got) > len(newItems)+len(oldItems) {
		t.Errorf("change size %d exceeds bound", Size(got))
	}
}

func TestSame(t *testing.T) {
	s := []int{1, 2}
	m := map[string]int{"a": 1}
	type wrapper struct{ V any }

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, true},
		{"different types", 1, int64(1), false},
		{"nil nil", nil, nil, true},
		{"same slice", s, s, true},
		{"equal but distinct slices", []int{1, 2}, []int{1, 2}, false},
		{"same map", m, m, true},
		{"distinct maps", map[string]int{"a": 1}, map[string]int{"a": 1}, false},
		{"strings", "a", "a", true},
		{"uncomparable payload", wrapper{[]int{1}}, wrapper{[]int{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Same(tt.a, tt.b); got != tt.want {
				t.Errorf("Same(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDiff_RandomizedCorrectness(t *testing.T) {
	faker := gofakeit.New(42)

	for round := 0; round < 500; round++ {
		oldItems := randomList(faker)
		newItems := randomList(faker)

		changes := Diff(newItems, oldItems)
		if got := Apply(oldItems, changes); !reflect.DeepEqual(got, nonNil(newItems)) {
			t.Fatalf("round %d: Apply(old, Diff(new, old)) = %v, want %v (changes %+v)",
				round, got, newItems, changes)
		}
		if Size(changes) > len(newItems)+len(oldItems) {
			t.Fatalf("round %d: change size %d exceeds %d", round, Size(changes), len(newItems)+len(oldItems))
		}
	}
}

func FuzzDiff(f *testing.F) {
	f.Add([]byte{1, 2, 3, 4}, []byte{1, 3, 4})
	f.Add([]byte{}, []byte{9})
	f.Add([]byte{5, 5, 5}, []byte{5})

	f.Fuzz(func(t *testing.T, a, b []byte) {
		newItems, oldItems := bytesToItems(a), bytesToItems(b)
		changes := Diff(newItems, oldItems)
		if got := Apply(oldItems, changes); !reflect.DeepEqual(got, nonNil(newItems)) {
			t.Fatalf("Apply(old, Diff(new, old)) = %v, want %v", got, newItems)
		}
	})
}

func randomList(faker *gofakeit.Faker) []any {
	n := faker.IntRange(0, 12)
	out := make([]any, n)
	for i := range out {
		// a small alphabet forces repeated values
		out[i] = faker.IntRange(0, 5)
	}
	return out
}

func bytesToItems(bs []byte) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = int(b % 8)
	}
	return out
}

func nonNil(items []any) []any {
	if items == nil {
		return []any{}
	}
	return items
}
