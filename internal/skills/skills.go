// Package skills resolves skill profiles and materializes skill content
// for a benchmark run.
//
// Materialization is content-addressed: each skill's SKILL.md is hashed
// and copied into a per-(profile, mode) directory, producing a manifest
// and a prompt-injectable text blob. Native environment preparation
// mounts the enabled skill set into the per-harness directory layout
// some harnesses discover skills from.
package skills

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const summaryLimit = 1200

// ManifestEntry records one skill's provenance in a run manifest. SHA256
// is the sentinel "missing" when the skill's content file does not exist.
type ManifestEntry struct {
	Skill       string `json:"skill"`
	Path        string `json:"path"`
	SHA256      string `json:"sha256"`
	Description string `json:"description,omitempty"`
}

// Config is the outcome of materializing one (profile, mode) pair.
type Config struct {
	Enabled    bool            `json:"skills_enabled"`
	Profile    string          `json:"skills_profile"`
	Manifest   []ManifestEntry `json:"skills_manifest"`
	PromptText string          `json:"skills_prompt_text"`
	Dir        string          `json:"skills_dir"`
}

// LoadProfiles reads a skills profile file: a JSON object mapping profile
// name to a list of skill identifiers. A missing file yields an empty
// map; entries whose value is not a list are skipped.
func LoadProfiles(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading skills profiles %s: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing skills profiles %s: %w", path, err)
	}

	out := make(map[string][]string, len(raw))
	for name, value := range raw {
		list, ok := value.([]any)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(list))
		for _, item := range list {
			ids = append(ids, fmt.Sprintf("%v", item))
		}
		out[name] = ids
	}
	return out, nil
}

// ResolveNames maps a profile name or ad-hoc CSV of skill ids to the
// list of skill identifiers. Profile lookup takes precedence.
func ResolveNames(profileOrCSV string, profiles map[string][]string) []string {
	if ids, ok := profiles[profileOrCSV]; ok {
		return ids
	}
	var out []string
	for _, part := range strings.Split(profileOrCSV, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Materializer copies skill content into a run's output directory.
type Materializer struct {
	// Root is the canonical skills tree: <Root>/<skill>/SKILL.md.
	Root string
	// OutDir is the run output directory.
	OutDir string
	// MountMode controls native env mounts: "symlink" (default) or "copy".
	MountMode string
}

// Materialize builds the per-mode skills directory, manifest, and prompt
// text. With enabled=false the directory is still created so the run
// layout is symmetric across modes, but the manifest and prompt stay
// empty. A skill whose SKILL.md does not exist is recorded with the
// "missing" hash sentinel instead of failing the run.
func (m *Materializer) Materialize(profile string, names []string, enabled bool) (*Config, error) {
	modeName := "off"
	if enabled {
		modeName = "on"
	}
	dir := filepath.Join(m.OutDir, "effective_skills", profile+"-"+modeName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating skills dir %s: %w", dir, err)
	}

	cfg := &Config{
		Enabled:  enabled,
		Profile:  profile,
		Manifest: []ManifestEntry{},
		Dir:      dir,
	}
	if !enabled {
		return cfg, nil
	}

	var blocks []string
	for _, name := range names {
		src := filepath.Join(m.Root, name, "SKILL.md")
		raw, err := os.ReadFile(src)
		if err != nil {
			cfg.Manifest = append(cfg.Manifest, ManifestEntry{
				Skill:  name,
				Path:   src,
				SHA256: "missing",
			})
			continue
		}

		sum := sha256.Sum256(raw)
		dst := filepath.Join(dir, name, "SKILL.md")
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("creating skill dir for %s: %w", name, err)
		}
		if err := os.WriteFile(dst, raw, 0o644); err != nil {
			return nil, fmt.Errorf("copying skill %s: %w", name, err)
		}

		cfg.Manifest = append(cfg.Manifest, ManifestEntry{
			Skill:       name,
			Path:        src,
			SHA256:      hex.EncodeToString(sum[:]),
			Description: frontmatterDescription(string(raw)),
		})
		blocks = append(blocks, fmt.Sprintf("[skill:%s]\n%s", name, summarize(string(raw))))
	}

	cfg.PromptText = strings.Join(blocks, "\n\n")
	return cfg, nil
}

// summarize bounds a skill body for prompt injection.
func summarize(text string) string {
	body := strings.TrimSpace(text)
	if len(body) <= summaryLimit {
		return body
	}
	return body[:summaryLimit-3] + "..."
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// frontmatterDescription pulls the description out of a SKILL.md's YAML
// frontmatter (delimited by ---). Content without frontmatter, or with
// frontmatter that fails to parse, yields "".
func frontmatterDescription(content string) string {
	if !strings.HasPrefix(content, "---") {
		return ""
	}
	rest := strings.TrimPrefix(content[3:], "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return ""
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return ""
	}
	return strings.TrimSpace(fm.Description)
}
