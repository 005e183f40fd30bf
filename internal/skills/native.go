package skills

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var instanceSlugRE = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// nativeMount returns the harness-relative directory harnesses discover
// skills from, or "" when the harness has no native convention.
func nativeMount(harness string) string {
	switch harness {
	case "claude":
		return filepath.Join(".claude", "skills")
	case "codex":
		return filepath.Join(".codex", "skills")
	default:
		return ""
	}
}

// PrepareNativeEnv builds the isolated per-(profile, mode, harness)
// environment directory and mounts exactly the enabled skill set into
// the harness's native skills location. Pre-existing mounts are cleared
// first: a skill disabled in the current mode must be absent from the
// mount, never silently retained from an earlier run.
func (m *Materializer) PrepareNativeEnv(harness, profile, mode string, names []string) (string, error) {
	envDir := filepath.Join(m.OutDir, "native_env", fmt.Sprintf("%s-%s-%s", profile, mode, harness))
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return "", fmt.Errorf("creating native env %s: %w", envDir, err)
	}

	mount := nativeMount(harness)
	if mount == "" {
		return envDir, nil
	}

	target := filepath.Join(envDir, mount)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("creating skills mount %s: %w", target, err)
	}
	if err := clearMount(target, m.copyMode()); err != nil {
		return "", err
	}

	for _, name := range names {
		src := filepath.Join(m.Root, name)
		if _, err := os.Stat(filepath.Join(src, "SKILL.md")); err != nil {
			continue
		}
		dst := filepath.Join(target, name)
		if err := os.RemoveAll(dst); err != nil {
			return "", fmt.Errorf("clearing stale mount %s: %w", dst, err)
		}
		if m.copyMode() {
			if err := copyTree(src, dst); err != nil {
				return "", fmt.Errorf("copying skill %s into mount: %w", name, err)
			}
		} else {
			if err := os.Symlink(src, dst); err != nil {
				return "", fmt.Errorf("linking skill %s into mount: %w", name, err)
			}
		}
	}
	return envDir, nil
}

func (m *Materializer) copyMode() bool {
	return strings.EqualFold(m.MountMode, "copy")
}

// clearMount removes previous skill mounts. Symlink mode only unlinks
// symlinked entries; copy mode removes everything.
func clearMount(dir string, copyMode bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading skills mount %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if copyMode {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("clearing mount entry %s: %w", path, err)
			}
			continue
		}
		if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing stale symlink %s: %w", path, err)
			}
		}
	}
	return nil
}

// PrepareHome seeds a harness config home inside a native env
// directory from the user's real home, carrying over only the known
// credential/config files. Returns the prepared home path. A missing
// source file is simply not copied.
func PrepareHome(sourceHome, envDir string) (string, error) {
	home := filepath.Join(envDir, ".codex")
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("creating harness home %s: %w", home, err)
	}
	if sourceHome == "" {
		return home, nil
	}
	if abs, err := filepath.Abs(sourceHome); err == nil {
		if absHome, err := filepath.Abs(home); err == nil && abs == absHome {
			return home, nil
		}
	}

	for _, name := range []string{"auth.json", "config.toml", "version.json"} {
		src := filepath.Join(sourceHome, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(home, name)); err != nil {
			return "", fmt.Errorf("seeding %s: %w", name, err)
		}
	}
	return home, nil
}

// CloneHomeInstance copies a harness's credential/config home into a
// private per-worker directory so concurrent workers never share one
// mutable home. Only the known config files and the skills tree carry
// over.
func CloneHomeInstance(baseHome, outDir, mode, instanceID string) (string, error) {
	slug := instanceSlugRE.ReplaceAllString(instanceID, "_")
	if len(slug) > 24 {
		slug = slug[:24]
	}
	if slug == "" {
		slug = "instance"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	target := filepath.Join(outDir, "home_instances", fmt.Sprintf("%s-%s-%s", mode, slug, suffix))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("creating home instance %s: %w", target, err)
	}

	for _, name := range []string{"auth.json", "config.toml", "version.json"} {
		src := filepath.Join(baseHome, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(target, name)); err != nil {
			return "", fmt.Errorf("cloning %s: %w", name, err)
		}
	}

	srcSkills := filepath.Join(baseHome, "skills")
	if info, err := os.Stat(srcSkills); err == nil && info.IsDir() {
		if err := copyTree(srcSkills, filepath.Join(target, "skills")); err != nil {
			return "", fmt.Errorf("cloning skills tree: %w", err)
		}
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree mirrors a directory, preserving symlinks as symlinks.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.IsDir():
			return os.MkdirAll(target, 0o755)
		default:
			return copyFile(path, target)
		}
	})
}
