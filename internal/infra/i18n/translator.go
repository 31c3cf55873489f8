package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// DefaultLang backs every catalogue: keys missing from a locale fall back to it.
const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// Load reads the embedded catalogue for langCode.
func Load(langCode string) (*Translator, error) {
	return NewTranslator(LocalesFS, langCode)
}

// NewTranslator reads locales/<langCode>.yaml from fsys, layered over the default language.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	if langCode == "" {
		langCode = DefaultLang
	}
	base, err := readCatalogue(fsys, DefaultLang)
	if err != nil {
		return nil, err
	}
	if langCode != DefaultLang {
		overlay, err := readCatalogue(fsys, langCode)
		if err != nil {
			return nil, err
		}
		for k, v := range overlay {
			base[k] = v
		}
	}
	return &Translator{lang: langCode, translations: base}, nil
}

func readCatalogue(fsys fs.FS, langCode string) (map[string]string, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return t.translations, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	if translations == nil {
		translations = map[string]string{}
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the message for key, formatted with args. Unknown keys come back verbatim.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
