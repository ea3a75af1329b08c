package keyword

import (
	"reflect"
	"testing"
)

func TestSet_MergeUnion(t *testing.T) {
	s := NewSet()

	s1 := []string{"エアコン 掃除", "エアコン 修理", "エアコン 掃除"}
	s2 := []string{"エアコン 修理", "エアコン 水漏れ"}

	added1 := s.Merge(s1)
	if !reflect.DeepEqual(added1, []string{"エアコン 掃除", "エアコン 修理"}) {
		t.Fatalf("unexpected first merge result: %v", added1)
	}

	added2 := s.Merge(s2)
	if !reflect.DeepEqual(added2, []string{"エアコン 水漏れ"}) {
		t.Fatalf("unexpected second merge result: %v", added2)
	}

	want := []string{"エアコン 掃除", "エアコン 修理", "エアコン 水漏れ"}
	if got := s.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected union %v, got %v", want, got)
	}
}

func TestSet_MergeIdempotent(t *testing.T) {
	s := NewSet()
	seq := []string{"a", "b", "c"}

	s.Merge(seq)
	before := s.Terms()

	added := s.Merge(seq)
	if len(added) != 0 {
		t.Errorf("second merge should add nothing, got %v", added)
	}
	if !reflect.DeepEqual(s.Terms(), before) {
		t.Errorf("set changed after idempotent merge: %v vs %v", s.Terms(), before)
	}
}

func TestSet_IgnoresEmptyStrings(t *testing.T) {
	s := NewSet()
	added := s.Merge([]string{"", "x", ""})
	if !reflect.DeepEqual(added, []string{"x"}) {
		t.Errorf("expected only x, got %v", added)
	}
	if s.Len() != 1 {
		t.Errorf("expected len 1, got %d", s.Len())
	}
}

func TestSet_First(t *testing.T) {
	s := NewSet()
	s.Merge([]string{"a", "b", "c", "d"})

	if got := s.First(2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("First(2) = %v", got)
	}
	if got := s.First(10); len(got) != 4 {
		t.Errorf("First(10) should clamp, got %v", got)
	}
	if got := s.First(-1); len(got) != 4 {
		t.Errorf("First(-1) should return all, got %v", got)
	}
}

func TestSet_Contains(t *testing.T) {
	s := NewSet()
	s.Add("テスト 方法")

	if !s.Contains("テスト 方法") {
		t.Error("expected set to contain added term")
	}
	if s.Contains("テスト 意味") {
		t.Error("did not expect unknown term")
	}
}
