package profile

import (
	"embed"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// file is the on-disk shape. Profiles live under a top-level "profile" key.
type file struct {
	Profile Profile `yaml:"profile"`
}

// presence records which optional keys a profile file sets.
type presence struct {
	Profile struct {
		Threshold *float64 `yaml:"threshold"`
	} `yaml:"profile"`
}

// Load reads a profile from a YAML file.
func Load(p string) (*Profile, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", p)
	}
	prof, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: load %s", p)
	}
	return prof, nil
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "profile: parse yaml")
	}
	var set presence
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrap(err, "profile: parse yaml")
	}
	prof := &f.Profile
	prof.applyDefaults(set.Profile.Threshold != nil)
	if err := Validate(prof); err != nil {
		return nil, err
	}
	return prof, nil
}

// Marshal encodes a profile in the same shape Parse reads.
func Marshal(p *Profile) ([]byte, error) {
	data, err := yaml.Marshal(file{Profile: *p})
	if err != nil {
		return nil, eris.Wrap(err, "profile: marshal yaml")
	}
	return data, nil
}

// Builtin returns a fresh copy of a built-in profile.
func Builtin(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, eris.Errorf("profile: unknown built-in profile %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data)
}

// BuiltinNames lists the built-in profiles in name order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads the profile at filePath when set, otherwise the named built-in.
func Resolve(name, filePath string) (*Profile, error) {
	if filePath != "" {
		return Load(filePath)
	}
	return Builtin(name)
}
