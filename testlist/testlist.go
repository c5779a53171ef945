package testlist

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/hwverif/gen-regress/types"
)

const (
	// CommentPrefix marks a testlist line that is ignored.
	CommentPrefix = "//"

	// AllTests is the filter value that keeps every test.
	AllTests = "all"

	maxLineBytes = 1 << 20
)

var (
	lineRegex = regexp.MustCompile(`^\s*([a-z0-9_-]+)\s*:\s*(\d+)\s*:(.*)$`)
	nameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// ParseLine turns a single testlist line into a spec. Comment lines and lines
// that do not follow "name : iterations : options" report false; they are
// skipped, never treated as errors.
func ParseLine(line string) (types.TestCaseSpec, bool) {
	if strings.HasPrefix(strings.TrimSpace(line), CommentPrefix) {
		return types.TestCaseSpec{}, false
	}
	m := lineRegex.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return types.TestCaseSpec{}, false
	}
	iterations, err := strconv.Atoi(m[2])
	if err != nil {
		return types.TestCaseSpec{}, false
	}
	return types.TestCaseSpec{
		Name:       m[1],
		Iterations: iterations,
		Options:    strings.TrimSpace(m[3]),
	}, true
}

// Parser lazily reads specs from a text testlist. Like bufio.Scanner, read
// errors are reported by Err once iteration stops. Lines longer than
// maxLineBytes are skipped like any other malformed line.
type Parser struct {
	r   io.Reader
	err error
}

// NewParser creates a parser over r
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// All yields specs in line order.
func (p *Parser) All() iter.Seq[types.TestCaseSpec] {
	return func(yield func(types.TestCaseSpec) bool) {
		br := bufio.NewReaderSize(p.r, 64*1024)
		lineNo := 0
		for {
			line, ok, err := readLine(br)
			if err != nil {
				if err != io.EOF {
					p.err = err
				}
				return
			}
			lineNo++
			if !ok {
				log.Debug("Skipping overlong testlist line", "line", lineNo)
				continue
			}
			spec, ok := ParseLine(line)
			if !ok {
				continue
			}
			spec.Line = lineNo
			if !yield(spec) {
				return
			}
		}
	}
}

// readLine returns the next line without its terminator. A line over
// maxLineBytes is consumed in full and reported with ok false.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	overlong := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && (len(buf) > 0 || overlong) {
				break
			}
			return "", false, err
		}
		if !overlong {
			buf = append(buf, frag...)
			if len(buf) > maxLineBytes {
				overlong = true
				buf = nil
			}
		}
		if !isPrefix {
			break
		}
	}
	return string(buf), !overlong, nil
}

// Err returns the first non-EOF read error encountered by All.
func (p *Parser) Err() error {
	return p.err
}

// Buildable drops disabled (zero-iteration) specs.
func Buildable(specs iter.Seq[types.TestCaseSpec]) iter.Seq[types.TestCaseSpec] {
	return func(yield func(types.TestCaseSpec) bool) {
		for spec := range specs {
			if !spec.Buildable() {
				continue
			}
			if !yield(spec) {
				return
			}
		}
	}
}

// yamlEntry is one entry of a YAML testlist. An entry either describes a
// test or imports another testlist file.
type yamlEntry struct {
	Import      string `yaml:"import,omitempty"`
	Test        string `yaml:"test"`
	Description string `yaml:"description,omitempty"`
	Iterations  int    `yaml:"iterations"`
	GenOpts     string `yaml:"gen_opts,omitempty"`
}

// Load reads a testlist file. Files ending in .yaml or .yml use the YAML
// format, everything else the line format.
func Load(path string) ([]types.TestCaseSpec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path, make(map[string]bool))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening testlist: %w", err)
	}
	defer f.Close()

	p := NewParser(f)
	specs := slices.Collect(p.All())
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("reading testlist %s: %w", path, err)
	}
	log.Debug("Loaded testlist", "path", path, "specs", len(specs))
	return specs, nil
}

func loadYAML(path string, visited map[string]bool) ([]types.TestCaseSpec, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving testlist path %s: %w", path, err)
	}
	if visited[absPath] {
		return nil, fmt.Errorf("testlist %s imported more than once", path)
	}
	visited[absPath] = true

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading testlist: %w", err)
	}

	var entries []yamlEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing testlist %s: %w", path, err)
	}

	var specs []types.TestCaseSpec
	for _, entry := range entries {
		if entry.Import != "" {
			importPath := entry.Import
			if !filepath.IsAbs(importPath) {
				importPath = filepath.Join(filepath.Dir(absPath), importPath)
			}
			imported, err := loadYAML(importPath, visited)
			if err != nil {
				return nil, fmt.Errorf("importing %s: %w", entry.Import, err)
			}
			specs = append(specs, imported...)
			continue
		}
		if !nameRegex.MatchString(entry.Test) || entry.Iterations < 0 {
			log.Debug("Skipping testlist entry", "path", path, "test", entry.Test)
			continue
		}
		specs = append(specs, types.TestCaseSpec{
			Name:        entry.Test,
			Iterations:  entry.Iterations,
			Options:     strings.TrimSpace(entry.GenOpts),
			Description: strings.TrimSpace(entry.Description),
		})
	}
	log.Debug("Loaded testlist", "path", path, "specs", len(specs))
	return specs, nil
}

// Filter keeps the specs named in names, preserving testlist order. An empty
// filter or the single name "all" keeps everything.
func Filter(specs []types.TestCaseSpec, names []string) []types.TestCaseSpec {
	if len(names) == 0 || (len(names) == 1 && names[0] == AllTests) {
		return specs
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = false
	}

	var filtered []types.TestCaseSpec
	for _, spec := range specs {
		if _, ok := wanted[spec.Name]; ok {
			wanted[spec.Name] = true
			filtered = append(filtered, spec)
		}
	}

	for _, name := range names {
		if !wanted[name] {
			log.Warn("Test not found in testlist", "test", name)
		}
	}
	return filtered
}

// OverrideIterations sets the iteration count of every enabled spec to n.
// Disabled specs stay disabled. n <= 0 leaves specs untouched.
func OverrideIterations(specs []types.TestCaseSpec, n int) []types.TestCaseSpec {
	if n <= 0 {
		return specs
	}
	out := make([]types.TestCaseSpec, len(specs))
	for i, spec := range specs {
		if spec.Buildable() {
			spec.Iterations = n
		}
		out[i] = spec
	}
	return out
}
