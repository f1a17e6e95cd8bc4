package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	// GeneralSection is the configuration section holding the Options.
	GeneralSection = "general"
)

// DefaultSection holds values inherited by every other section. It is
// not a section of its own in the context.
var DefaultSection = ini.DefaultSection

// Config is the parsed configuration file.
type Config struct {
	Options Options
	Context Context

	// keys explicitly present in the general section
	set map[string]bool
}

// IsSet reports whether the general section defined key.
func (c *Config) IsSet(key string) bool {
	return c.set[key]
}

// LoadConfig reads an INI or YAML configuration file. YAML is chosen by the
// .yml/.yaml extension, everything else is parsed as INI.
func LoadConfig(fn string) (*Config, error) {
	log.Info().Str("file", fn).Msg("loading configuration")

	var (
		sections map[string]Section
		err      error
	)
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yml", ".yaml":
		sections, err = readYAML(fn)
	default:
		sections, err = readINI(fn)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", fn, err)
	}

	cfg, err := newConfig(sections)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", fn, err)
	}
	return cfg, nil
}

func newConfig(sections map[string]Section) (*Config, error) {
	cfg := &Config{
		Options: DefaultOptions(),
		Context: Context{},
		set:     map[string]bool{},
	}
	defaults := sections[DefaultSection]

	if general, ok := sections[GeneralSection]; ok || len(defaults) > 0 {
		if err := cfg.applyGeneral(inherit(general, defaults), defaults); err != nil {
			return nil, err
		}
	}

	for name, sec := range sections {
		if name == GeneralSection || name == DefaultSection {
			continue
		}
		if !IsIdentifier(name) {
			log.Warn().Str("section", name).Msg("section name is not a valid template identifier, ignored")
			continue
		}
		cfg.Context[name] = inherit(sec, defaults)
	}
	return cfg, nil
}

// inherit returns sec with the keys of defaults it does not set itself.
func inherit(sec, defaults Section) Section {
	out := make(Section, len(sec)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range sec {
		out[k] = v
	}
	return out
}

// applyGeneral sets the Options from kv. Keys inherited from defaults are
// not reported when unknown.
func (cfg *Config) applyGeneral(kv, defaults Section) error {
	o := &cfg.Options
	for k, v := range kv {
		var err error
		switch k {
		case "imgext":
			o.ImageExts = SplitExtensions(v)
		case "srcext":
			o.SourceExts = SplitExtensions(v)
		case "verbose":
			o.Verbose, err = ParseBool(v)
		case "compile":
			o.Compile, err = ParseBool(v)
		case "link":
			o.Link, err = ParseBool(v)
		case "pdfcommand", "pdfcomand":
			k = "pdfcommand"
			o.Command = strings.TrimSpace(v)
		case "dest":
			o.Dest = strings.TrimSpace(v)
		case "source":
			o.Sources = SplitList(v)
		case "templates":
			o.Templates = strings.TrimSpace(v)
		default:
			if _, inherited := defaults[k]; !inherited {
				log.Warn().Str("key", k).Msg("unknown key in [general], ignored")
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("[%s] %s: %w", GeneralSection, k, err)
		}
		cfg.set[k] = true
	}
	return nil
}

func readINI(fn string) (map[string]Section, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveKeys:            true,
		SpaceBeforeInlineComment:   true,
		AllowPythonMultilineValues: true,
	}, fn)
	if err != nil {
		return nil, err
	}
	out := map[string]Section{}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		out[sec.Name()] = sec.KeysHash()
	}
	return out, nil
}

func readYAML(fn string) (map[string]Section, error) {
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	raw := map[string]map[string]any{}
	if err = yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}

	out := make(map[string]Section, len(raw))
	for name, sec := range raw {
		s := make(Section, len(sec))
		for k, v := range sec {
			s[strings.ToLower(k)] = yamlScalar(v)
		}
		out[name] = s
	}
	return out, nil
}

// yamlScalar flattens a decoded YAML value into the string form an INI file
// would carry. Sequences become comma separated lists.
func yamlScalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, it := range v {
			items = append(items, yamlScalar(it))
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// ParseBool accepts the boolean spellings of configuration files:
// 1/t/true/yes/y/on and 0/f/false/no/n/off, in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", s)
}
