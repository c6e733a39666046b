package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

var (
	builder   = catalog.NewBuilder(catalog.Fallback(DefaultLanguage))
	supported = mustLoad(localesFS)
)

// mustLoad registers every embedded locale file; a broken catalog is a build defect
func mustLoad(fsys fs.FS) []language.Tag {
	tags, err := load(builder, fsys)
	if err != nil {
		panic(fmt.Sprintf("i18n: %v", err))
	}
	return tags
}

// load parses locales/*.yaml from fsys into b and returns the locales found
func load(b *catalog.Builder, fsys fs.FS) ([]language.Tag, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	tags := make([]language.Tag, 0, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}

		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: invalid locale %q: %w", path, file.Locale, err)
		}

		for key, msg := range file.Messages {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s: key %s: %w", path, key, err)
			}
		}
		tags = append(tags, tag)
	}

	return tags, nil
}
