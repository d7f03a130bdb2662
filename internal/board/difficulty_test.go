package board

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		rows, cols, mines int
		want              Difficulty
	}{
		{8, 8, 10, Beginner},
		{16, 16, 40, Intermediate},
		{30, 16, 99, ExpertV},
		{16, 30, 99, ExpertH},
		{9, 9, 10, Intermediate},
		{5, 5, 3, Beginner},
		{24, 30, 150, ExpertH},
		{40, 20, 150, ExpertV},
	}
	for _, tt := range tests {
		if got := Classify(tt.rows, tt.cols, tt.mines); got != tt.want {
			t.Fatalf("Classify(%d, %d, %d): expected %s, got %s", tt.rows, tt.cols, tt.mines, tt.want, got)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	for alias, want := range map[string]Difficulty{
		"b": Beginner, "int": Intermediate, "e1": ExpertV, "exp-v": ExpertV, "eh": ExpertH,
	} {
		got, err := ParseDifficulty(alias)
		if err != nil {
			t.Fatalf("parse %q: %v", alias, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", alias, want, got)
		}
	}
	if _, err := ParseDifficulty("hard"); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestPreset(t *testing.T) {
	g, ok := Preset(ExpertH)
	if !ok {
		t.Fatalf("expected expert-h preset")
	}
	if g.Rows != 16 || g.Columns != 30 || g.Mines != 99 {
		t.Fatalf("unexpected expert-h preset %+v", g)
	}
	if _, ok := Preset("nope"); ok {
		t.Fatalf("expected no preset for unknown difficulty")
	}
}
