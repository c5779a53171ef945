package testlist

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwverif/gen-regress/types"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected types.TestCaseSpec
		ok       bool
	}{
		{
			name:     "well formed",
			line:     "test_alu : 3 : +opt=1",
			expected: types.TestCaseSpec{Name: "test_alu", Iterations: 3, Options: "+opt=1"},
			ok:       true,
		},
		{
			name:     "no whitespace",
			line:     "riscv-basic:10:+instr_cnt=100",
			expected: types.TestCaseSpec{Name: "riscv-basic", Iterations: 10, Options: "+instr_cnt=100"},
			ok:       true,
		},
		{
			name:     "embedded whitespace in options is kept",
			line:     "t1 : 2 : +a=1   +b=2 -c  ",
			expected: types.TestCaseSpec{Name: "t1", Iterations: 2, Options: "+a=1   +b=2 -c"},
			ok:       true,
		},
		{
			name:     "empty options",
			line:     "t1 : 2 :",
			expected: types.TestCaseSpec{Name: "t1", Iterations: 2},
			ok:       true,
		},
		{
			name:     "options containing colons",
			line:     "t1 : 1 : +path=a:b:c",
			expected: types.TestCaseSpec{Name: "t1", Iterations: 1, Options: "+path=a:b:c"},
			ok:       true,
		},
		{
			name:     "zero iterations still parses",
			line:     "test_ld  : 0 : +opt=2",
			expected: types.TestCaseSpec{Name: "test_ld", Iterations: 0, Options: "+opt=2"},
			ok:       true,
		},
		{
			name:     "windows line ending",
			line:     "t1 : 1 : +x\r",
			expected: types.TestCaseSpec{Name: "t1", Iterations: 1, Options: "+x"},
			ok:       true,
		},
		{name: "comment", line: "// comment"},
		{name: "indented comment", line: "   // test_alu : 3 : +opt=1"},
		{name: "missing colon", line: "bad_line_no_colon"},
		{name: "only one colon", line: "test_alu : 3"},
		{name: "uppercase name", line: "Test_ALU : 3 : +opt=1"},
		{name: "dot in name", line: "test.alu : 3 : +opt=1"},
		{name: "negative iterations", line: "test_alu : -3 : +opt=1"},
		{name: "non numeric iterations", line: "test_alu : three : +opt=1"},
		{name: "empty", line: ""},
		{name: "blank", line: "    "},
		{name: "iterations overflow", line: "t : 99999999999999999999999 : +x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, spec)
		})
	}
}

func TestParserAll(t *testing.T) {
	input := strings.Join([]string{
		"// comment",
		"test_alu : 3 : +opt=1",
		"test_ld  : 0 : +opt=2",
		"bad_line_no_colon",
	}, "\n")

	p := NewParser(strings.NewReader(input))
	specs := slices.Collect(p.All())
	require.NoError(t, p.Err())
	require.Len(t, specs, 2)

	buildable := slices.Collect(Buildable(slices.Values(specs)))
	require.Equal(t, []types.TestCaseSpec{
		{Name: "test_alu", Iterations: 3, Options: "+opt=1", Line: 2},
	}, buildable)
}

func TestParserPreservesOrder(t *testing.T) {
	input := "c : 1 : \nb : 1 : \n// x\na : 1 : \n"

	var names []string
	for spec := range NewParser(strings.NewReader(input)).All() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"c", "b", "a"}, names)
}

func TestParserStopsEarly(t *testing.T) {
	input := "a : 1 : \nb : 1 : \nc : 1 : \n"

	var names []string
	for spec := range NewParser(strings.NewReader(input)).All() {
		names = append(names, spec.Name)
		if len(names) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestParserSkipsOverlongLines(t *testing.T) {
	input := "a : 1 : +x\n" + strings.Repeat("z", 2<<20) + "\nb : 1 : +y"

	p := NewParser(strings.NewReader(input))
	specs := slices.Collect(p.All())
	require.NoError(t, p.Err())
	assert.Equal(t, []types.TestCaseSpec{
		{Name: "a", Iterations: 1, Options: "+x", Line: 1},
		{Name: "b", Iterations: 1, Options: "+y", Line: 3},
	}, specs)
}

func TestLoadSkipsOverlongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testlist")
	content := "a : 1 : +x\n" + strings.Repeat("z", 2<<20) + "\nb : 1 : +y\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	specs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "b", specs[1].Name)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestParserReportsReadErrors(t *testing.T) {
	p := NewParser(failingReader{})
	specs := slices.Collect(p.All())
	assert.Empty(t, specs)
	require.Error(t, p.Err())
	assert.Contains(t, p.Err().Error(), "disk on fire")
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testlist")
	content := "// regression\nriscv_arithmetic_basic_test : 2 : +instr_cnt=1000\nriscv_rand_jump_test : 0 : \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	specs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "riscv_arithmetic_basic_test", specs[0].Name)
	assert.Equal(t, "+instr_cnt=1000", specs[0].Options)
	assert.Equal(t, 2, specs[0].Line)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening testlist")
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	base := `
- test: riscv_rand_instr_test
  description: >
    Random instruction stress test
  iterations: 2
  gen_opts: >
    +instr_cnt=5000
    +num_of_sub_program=5
`
	main := `
- import: base.yaml
- test: riscv_arithmetic_basic_test
  iterations: 1
  gen_opts: +instr_cnt=100
- test: Invalid_Name
  iterations: 1
- test: riscv_disabled_test
  iterations: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testlist.yaml"), []byte(main), 0644))

	specs, err := Load(filepath.Join(dir, "testlist.yaml"))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "riscv_rand_instr_test", specs[0].Name)
	assert.Equal(t, "+instr_cnt=5000 +num_of_sub_program=5", specs[0].Options)
	assert.Equal(t, "Random instruction stress test", specs[0].Description)
	assert.Equal(t, "riscv_arithmetic_basic_test", specs[1].Name)
	assert.Equal(t, "riscv_disabled_test", specs[2].Name)
	assert.False(t, specs[2].Buildable())
}

func TestLoadYAMLImportCycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("- import: b.yaml\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("- import: a.yaml\n"), 0644))

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imported more than once")
}

func TestFilter(t *testing.T) {
	specs := []types.TestCaseSpec{
		{Name: "a", Iterations: 1},
		{Name: "b", Iterations: 1},
		{Name: "c", Iterations: 1},
	}

	tests := []struct {
		name     string
		filter   []string
		expected []string
	}{
		{name: "nil keeps all", filter: nil, expected: []string{"a", "b", "c"}},
		{name: "all keeps all", filter: []string{AllTests}, expected: []string{"a", "b", "c"}},
		{name: "keeps testlist order", filter: []string{"c", "a"}, expected: []string{"a", "c"}},
		{name: "unknown names are dropped", filter: []string{"b", "zzz"}, expected: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, spec := range Filter(specs, tt.filter) {
				names = append(names, spec.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestOverrideIterations(t *testing.T) {
	specs := []types.TestCaseSpec{
		{Name: "a", Iterations: 3},
		{Name: "b", Iterations: 0},
	}

	out := OverrideIterations(specs, 7)
	assert.Equal(t, 7, out[0].Iterations)
	assert.Equal(t, 0, out[1].Iterations)
	assert.Equal(t, 3, specs[0].Iterations, "input must not be modified")

	assert.Equal(t, specs, OverrideIterations(specs, 0))
}

func TestLoadShippedTestlists(t *testing.T) {
	for _, name := range []string{"testlist", "base_testlist.yaml"} {
		specs, err := Load(filepath.Join("..", "yaml", name))
		require.NoError(t, err, name)

		var names []string
		for spec := range Buildable(slices.Values(specs)) {
			names = append(names, spec.Name)
			assert.NotEmpty(t, spec.Options, spec.Name)
		}
		assert.Equal(t, []string{"riscv_arithmetic_basic_test", "riscv_rand_instr_test", "riscv_jump_stress_test"}, names, name)
	}
}
