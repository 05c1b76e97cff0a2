package i18n

import (
	"fmt"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Catalog 翻译目录，未翻译的 key 原样输出
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// CatalogFile 翻译文件格式
//
//	language: de
//	messages:
//	  "Host group": "Hostgruppe"
type CatalogFile struct {
	Language string            `yaml:"language"`
	Messages map[string]string `yaml:"messages"`
}

// New builds a catalog for lang. An empty or unknown lang falls back to English.
func New(lang string, messages map[string]string) (*Catalog, error) {
	tag := language.English
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		tag = parsed
	}

	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range messages {
		if err := builder.SetString(tag, key, msg); err != nil {
			return nil, fmt.Errorf("failed to add message %q: %w", key, err)
		}
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}, nil
}

// Default 英文目录
func Default() *Catalog {
	c, _ := New("", nil)
	return c
}

// LoadFile 从 YAML 文件加载翻译目录
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return New(file.Language, file.Messages)
}

// Language returns the BCP 47 tag of the catalog.
func (c *Catalog) Language() string {
	return c.tag.String()
}

// Localize formats key in the catalog language.
func (c *Catalog) Localize(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
