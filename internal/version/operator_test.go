package version

import "testing"

func TestParseOp(t *testing.T) {
	tests := []struct {
		in   string
		want Op
	}{
		{"", OpGT | OpEQ},
		{">=", OpGT | OpEQ},
		{"<=", OpLT | OpEQ},
		{"!=", OpNE | OpEQ},
		{">", OpGT},
		{"<", OpLT},
		{"=", OpEQ},
		{"==", OpEQ},
		{"~", OpCompat},
		{"~=", OpCompat | OpEQ},
		{"?", OpGT | OpEQ},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseOp(tt.in); got != tt.want {
				t.Errorf("ParseOp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOpString(t *testing.T) {
	for _, s := range []string{">=", "<=", "!=", ">", "<", "="} {
		if got := ParseOp(s).String(); got != s {
			t.Errorf("ParseOp(%q).String() = %q", s, got)
		}
	}
}

func TestOpEval(t *testing.T) {
	tests := []struct {
		candidate string
		op        string
		target    string
		want      bool
	}{
		{"1.2", ">=", "1.2", true},
		{"1.1", ">=", "1.2", false},
		{"1.3", ">", "1.2", true},
		{"1.2", ">", "1.2", false},
		{"1.2", "<=", "1.2", true},
		{"1.3", "<=", "1.2", false},
		{"1.1", "<", "1.2", true},
		{"1.2", "=", "1.2", true},
		{"1.2.0", "=", "1.2", false},
		{"1.2", "!=", "1.2", false},
		{"1.3", "!=", "1.2", true},
		{"1.0rc1", "<", "1.0", true},
		{"0.10", ">", "0.9", true},
	}

	for _, tt := range tests {
		t.Run(tt.candidate+tt.op+tt.target, func(t *testing.T) {
			if got := ParseOp(tt.op).Eval(tt.candidate, tt.target); got != tt.want {
				t.Errorf("%s %s %s = %v, want %v", tt.candidate, tt.op, tt.target, got, tt.want)
			}
		})
	}
}

func TestCompatibleRelease(t *testing.T) {
	tests := []struct {
		candidate string
		target    string
		want      bool
	}{
		{"1.2.5", "1.2.3", true},
		{"1.3.0", "1.2.3", false},
		{"1.2.0", "1.2.3", false},
		{"2.4.7.1", "2.4.1.0", false},
		{"2.4.1.9", "2.4.1.0", true},
		{"2.4.2.0", "2.4.1.0", false},
		{"1.0rc5", "1.0rc1", false},
		{"3.11.4", "3.11", true},
	}

	for _, tt := range tests {
		t.Run(tt.candidate+"~"+tt.target, func(t *testing.T) {
			if got := OpCompat.Eval(tt.candidate, tt.target); got != tt.want {
				t.Errorf("%s ~= %s = %v, want %v", tt.candidate, tt.target, got, tt.want)
			}
		})
	}
}
