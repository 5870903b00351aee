package fieldtype

import (
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// Resolve заполняет опции значениями по умолчанию и проверяет обязательные.
// Ключи и строковые значения приводятся к нижнему регистру. Чистая функция.
func Resolve(t Type, raw map[string]any) (Config, error) {
	cfg := make(Config, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			v = strings.ToLower(s)
		}
		cfg[strings.ToLower(strings.TrimSpace(k))] = v
	}

	for _, opt := range t.Options() {
		v, ok := cfg[opt.Name]
		if !ok || v == nil {
			switch {
			case opt.Default != nil:
				cfg[opt.Name] = opt.Default
			case opt.Required:
				return nil, apperr.New(apperr.MissingRequiredConfig,
					"Missing required config %q for %s field", opt.Name, t.Name())
			}
			continue
		}
		switch opt.Kind {
		case OptionInt:
			n, ok := toInt(v)
			if !ok {
				return nil, invalid("Config %q of %s field must be an integer", opt.Name, t.Name())
			}
			cfg[opt.Name] = n
		case OptionString:
			s, ok := v.(string)
			if !ok {
				return nil, invalid("Config %q of %s field must be a string", opt.Name, t.Name())
			}
			cfg[opt.Name] = strings.TrimSpace(s)
		}
	}

	if err := t.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
