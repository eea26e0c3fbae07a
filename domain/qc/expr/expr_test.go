package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/table"
)

func evalOn(t *testing.T, src string, bindings map[string]table.Value) Value {
	t.Helper()
	v, err := Eval(src, bindings)
	require.NoError(t, err, "expression %q", src)
	return v
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src      string
		expected float64
	}{
		{"1 + 2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-3 + 1", -2},
		{"--5", 5},
		{"7 - 2 - 1", 4},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := evalOn(t, tt.src, nil)
			assert.Equal(t, KindNumber, v.Kind)
			assert.Equal(t, tt.expected, v.Num)
		})
	}
}

func TestComparisons(t *testing.T) {
	bindings := map[string]table.Value{
		"bmi": table.Num(25),
		"sex": table.Str("F"),
	}

	tests := []struct {
		src      string
		expected bool
	}{
		{"bmi > 16", true},
		{"bmi >= 25", true},
		{"bmi < 25", false},
		{"bmi == 25", true},
		{"bmi != 25", false},
		{"sex == 'F'", true},
		{"sex == \"M\"", false},
		{"sex != 'M'", true},
		{"bmi == '25'", true},
		{"bmi + 5 > 29", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := evalOn(t, tt.src, bindings)
			assert.Equal(t, KindBool, v.Kind)
			assert.Equal(t, tt.expected, v.Bool)
		})
	}
}

func TestConnectives(t *testing.T) {
	bindings := map[string]table.Value{
		"age":    table.Num(40),
		"weight": table.Num(80),
	}

	tests := []struct {
		src      string
		expected bool
	}{
		{"age > 18 && weight < 100", true},
		{"age > 18 & weight > 100", false},
		{"age > 50 || weight < 100", true},
		{"age > 50 | weight > 100", false},
		{"!(age > 50)", true},
		{"!1", false},
		{"age > 18 && age < 65 && weight > 50", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := evalOn(t, tt.src, bindings)
			assert.Equal(t, KindBool, v.Kind)
			assert.Equal(t, tt.expected, v.Bool)
		})
	}
}

func TestNullPropagation(t *testing.T) {
	bindings := map[string]table.Value{
		"x": table.Null(),
		"y": table.Num(10),
	}

	// Null reaches comparisons and arithmetic as null, not as an error
	assert.True(t, evalOn(t, "x > 5", bindings).IsNull())
	assert.True(t, evalOn(t, "x + 1", bindings).IsNull())
	assert.True(t, evalOn(t, "x == x", bindings).IsNull())
	assert.True(t, evalOn(t, "!x", bindings).IsNull())

	// Three-valued connectives: a determinative side wins, unknown otherwise
	assert.True(t, evalOn(t, "x > 5 && y < 5", bindings).IsFalse())
	assert.True(t, evalOn(t, "x > 5 && y > 5", bindings).IsNull())
	assert.True(t, evalOn(t, "x > 5 || y > 5", bindings).IsTrue())
	assert.True(t, evalOn(t, "x > 5 || y < 5", bindings).IsNull())
}

func TestNaNComparesAsNull(t *testing.T) {
	v := evalOn(t, "0/0 > 1", nil)
	assert.True(t, v.IsNull())

	v = evalOn(t, "0/0 == 0/0", nil)
	assert.True(t, v.IsNull())
}

func TestDivisionByZero(t *testing.T) {
	v := evalOn(t, "1/0", nil)
	assert.Equal(t, KindNumber, v.Kind)
	assert.True(t, v.Num > 0 && v.Num*2 == v.Num, "positive infinity")
}

func TestEvalErrors(t *testing.T) {
	cases := []string{
		"bmi >",
		"(1 + 2",
		"1 $ 2",
		"'unterminated",
		"1 ==",
		"",
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := Eval(src, nil)
			assert.Error(t, err)
		})
	}

	// Unknown variable is a runtime error, not a parse error
	p, err := Parse("missing_var > 1")
	require.NoError(t, err)
	_, err = p.Eval(map[string]table.Value{"other": table.Num(1)})
	assert.Error(t, err)

	// Non-numeric strings cannot enter arithmetic or boolean context
	_, err = Eval("'abc' + 1", nil)
	assert.Error(t, err)
	_, err = Eval("'abc' && 1", nil)
	assert.Error(t, err)
}

func TestEvalSingle(t *testing.T) {
	p, err := Parse("weight > 150 | weight < 30")
	require.NoError(t, err)

	v, err := p.EvalSingle("weight", table.Num(200))
	require.NoError(t, err)
	assert.True(t, v.IsTrue())

	v, err = p.EvalSingle("weight", table.Num(70))
	require.NoError(t, err)
	assert.True(t, v.IsFalse())

	v, err = p.EvalSingle("weight", table.Null())
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestVariables(t *testing.T) {
	p, err := Parse("bmi > 16 && weight_kg / (height.m * height.m) < 50")
	require.NoError(t, err)
	assert.Equal(t, []string{"bmi", "weight_kg", "height.m"}, p.Variables())
}

func TestCellConversion(t *testing.T) {
	v := evalOn(t, "2 * 3", nil)
	assert.Equal(t, table.Num(6), v.Cell())

	v = evalOn(t, "'ok'", nil)
	assert.Equal(t, table.Str("ok"), v.Cell())

	v = evalOn(t, "1 > 0", nil)
	assert.Equal(t, table.Num(1), v.Cell(), "true stores as 1")

	v = evalOn(t, "1 < 0", nil)
	assert.Equal(t, table.Num(0), v.Cell(), "false stores as 0")
}
