package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	entityRe = regexp.MustCompile(`^entity\s+(\w+)(.*):\s*$`)
	keysRe   = regexp.MustCompile(`^(identity|primary_keys)\s*:\s*(.*)$`)
	fieldRe  = regexp.MustCompile(`^\s*([\w_]+):\s*([^\s#]+)(.*)$`)
	refRe    = regexp.MustCompile(`^ref(?:erence)?\[([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)\]$`)
)

// parse: options tokenizer — делит "k=v k2='v 2'" на токены, не рвёт по пробелам внутри кавычек
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		default:
			// разделитель — пробел, если мы не в кавычках
			if (r == ' ' || r == '\t') && !inSingle && !inDouble {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// parseOptions: "k=v" → k:v, флаг без значения → "true". Кавычки снимаются.
func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	for _, tok := range splitOptionTokens(raw) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, ok := strings.Cut(tok, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok {
			opts[k] = "true"
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if k != "" {
			opts[k] = v
		}
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse читает описания сущностей из r. name нужен только для сообщений об ошибках.
func Parse(r io.Reader, name string) ([]*Entity, error) {
	var entities []*Entity
	var current *Entity

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// entity <name> [type=...]:
		if m := entityRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				entities = append(entities, current)
			}
			opts := parseOptions(m[2])
			current = &Entity{Name: m[1], Type: opts["type"], Source: name}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("%s:%d: field outside of entity", name, lineNo)
		}

		if m := keysRe.FindStringSubmatch(line); m != nil {
			if m[1] == "identity" {
				current.Identity = splitList(m[2])
			} else {
				current.PrimaryKeys = splitList(m[2])
			}
			continue
		}

		m := fieldRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: cannot parse %q", name, lineNo, line)
		}
		f := Field{Name: m[1], Type: strings.ToLower(m[2]), Options: parseOptions(m[3])}
		if rm := refRe.FindStringSubmatch(m[2]); rm != nil {
			f.Type = "reference"
			f.RefTarget = rm[1] + "." + rm[2]
		} else if f.Type == "ref" {
			f.Type = "reference"
		}
		current.Fields = append(current.Fields, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		entities = append(entities, current)
	}
	return entities, nil
}

// LoadEntities читает один .dsl файл
func LoadEntities(path string) ([]*Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, path)
}

// LoadAll обходит root и читает все *.dsl в лексическом порядке путей.
// Отсутствующий каталог — не ошибка.
func LoadAll(root string) ([]*Entity, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var result []*Entity
	seen := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".dsl") {
			return nil
		}

		ents, err := LoadEntities(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, e := range ents {
			key := strings.ToLower(e.Name)
			if prev, exists := seen[key]; exists {
				return fmt.Errorf("duplicate entity %q in %s (first defined in %s)", e.Name, path, prev)
			}
			seen[key] = path
			result = append(result, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
