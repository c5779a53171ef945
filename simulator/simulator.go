package simulator

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/hwverif/gen-regress/templates"
)

// ToolConfig is one simulator entry of the simulator description file
type ToolConfig struct {
	Tool    string      `yaml:"tool"`
	Compile *StepConfig `yaml:"compile,omitempty"`
	Sim     StepConfig  `yaml:"sim"`
}

// StepConfig holds the command template for a single step
type StepConfig struct {
	Cmd string `yaml:"cmd"`
}

// SimFields are the values available to a sim command template. Together they
// form the invocation contract of a generation job.
type SimFields struct {
	Test           string
	Seed           int64
	Iterations     int
	Options        string
	LogPath        string
	ArtifactPrefix string
	OutDir         string
}

// CompileFields are the values available to a compile command template
type CompileFields struct {
	OutDir string
}

// Simulator holds the parsed command templates of the selected tool
type Simulator struct {
	name    string
	compile *template.Template
	sim     *template.Template
}

// Load reads the simulator description at path and selects tool.
func Load(path, tool string) (*Simulator, error) {
	log.Debug("Reading simulator description", "path", path, "tool", tool)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading simulator file: %w", err)
	}

	var tools []ToolConfig
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("parsing simulator file: %w", err)
	}

	for _, cfg := range tools {
		if cfg.Tool == tool {
			return New(cfg)
		}
	}

	known := make([]string, 0, len(tools))
	for _, cfg := range tools {
		known = append(known, cfg.Tool)
	}
	return nil, fmt.Errorf("simulator %q not found in %s (available: %s)", tool, path, strings.Join(known, ", "))
}

// New builds a Simulator from a tool entry. The templates are executed once
// against placeholder values so that rendering cannot fail later.
func New(cfg ToolConfig) (*Simulator, error) {
	if strings.TrimSpace(cfg.Sim.Cmd) == "" {
		return nil, fmt.Errorf("simulator %s: sim command is required", cfg.Tool)
	}

	s := &Simulator{name: cfg.Tool}

	var err error
	s.sim, err = templates.New(cfg.Tool+".sim", cfg.Sim.Cmd)
	if err != nil {
		return nil, fmt.Errorf("simulator %s: parsing sim command: %w", cfg.Tool, err)
	}
	if _, err := templates.Render(s.sim, SimFields{}); err != nil {
		return nil, fmt.Errorf("simulator %s: invalid sim command: %w", cfg.Tool, err)
	}

	if cfg.Compile != nil && strings.TrimSpace(cfg.Compile.Cmd) != "" {
		s.compile, err = templates.New(cfg.Tool+".compile", cfg.Compile.Cmd)
		if err != nil {
			return nil, fmt.Errorf("simulator %s: parsing compile command: %w", cfg.Tool, err)
		}
		if _, err := templates.Render(s.compile, CompileFields{}); err != nil {
			return nil, fmt.Errorf("simulator %s: invalid compile command: %w", cfg.Tool, err)
		}
	}

	return s, nil
}

// Name returns the tool name
func (s *Simulator) Name() string {
	return s.name
}

// HasCompile reports whether the tool has a compile step
func (s *Simulator) HasCompile() bool {
	return s.compile != nil
}

// RenderSim renders the sim command for one job
func (s *Simulator) RenderSim(f SimFields) string {
	// The template was executed against the same field set in New.
	cmd, err := templates.Render(s.sim, f)
	if err != nil {
		panic(fmt.Sprintf("simulator %s: rendering sim command: %v", s.name, err))
	}
	return cmd
}

// RenderCompile renders the compile command. It returns "" when the tool has
// no compile step.
func (s *Simulator) RenderCompile(outDir string) (string, error) {
	if s.compile == nil {
		return "", nil
	}
	return templates.Render(s.compile, CompileFields{OutDir: outDir})
}
