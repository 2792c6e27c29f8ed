package skill

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"opendialog/internal/domain"

	"gopkg.in/yaml.v3"
)

// PromptPack overrides the wording of a skill's prompts without
// touching its transition table. Deployments drop YAML files into the
// prompts directory, one per skill.
type PromptPack struct {
	Skill   string            `yaml:"skill"`
	Prompts map[string]string `yaml:"prompts"`
}

// LoadPromptPacks reads every .yaml/.yml file in dir. Unreadable or
// malformed files are skipped with a warning so one bad pack cannot
// take the assistant down.
func LoadPromptPacks(dir string, logger *slog.Logger) ([]PromptPack, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("prompt pack directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompt pack dir: %w", err)
	}

	var packs []PromptPack
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read prompt pack", "path", path, "err", err)
			continue
		}

		var pack PromptPack
		if err := yaml.Unmarshal(data, &pack); err != nil {
			logger.Warn("cannot parse prompt pack", "path", path, "err", err)
			continue
		}
		if pack.Skill == "" {
			pack.Skill = strings.TrimSuffix(name, filepath.Ext(name))
		}

		logger.Info("loaded prompt pack", "skill", pack.Skill, "path", path, "prompts", len(pack.Prompts))
		packs = append(packs, pack)
	}

	return packs, nil
}

// OverridePrompt replaces one state's prompt with a template. {field}
// placeholders are filled from the context at render time, keeping the
// prompt a pure function of the context. Must be called before the
// machine's skill is registered.
func (m *Machine) OverridePrompt(st domain.State, template string) error {
	spec, ok := m.states[st]
	if !ok {
		return fmt.Errorf("override prompt: unknown state %q", st)
	}
	spec.Prompt = func(c domain.Context) string { return renderPrompt(template, c) }
	m.states[st] = spec
	return nil
}

// renderPrompt substitutes {field} placeholders from the context.
// Unknown placeholders are left alone so typos stay visible.
func renderPrompt(template string, c domain.Context) string {
	out := template
	for field, value := range c {
		out = strings.ReplaceAll(out, "{"+field+"}", value)
	}
	return out
}

// applyPack rewrites the prompts of def's machine from a pack. States
// named in the pack but missing from the machine are reported, not
// silently dropped.
func applyPack(def domain.SkillDefinition, pack PromptPack) error {
	m, ok := def.Machine.(*Machine)
	if !ok {
		return fmt.Errorf("apply prompt pack: skill %q has no table machine", def.Name)
	}
	for state, text := range pack.Prompts {
		if err := m.OverridePrompt(domain.State(state), text); err != nil {
			return fmt.Errorf("apply prompt pack for %q: %w", def.Name, err)
		}
	}
	return nil
}
