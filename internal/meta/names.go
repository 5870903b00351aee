package meta

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

var notIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NormalizeName приводит имя сущности/поля к виду a-z0-9_:
// транслитерация в ASCII (в том числе кириллицы), нижний регистр,
// пробелы → "_", прочее вырезается. Функция идемпотентна.
func NormalizeName(s string) string {
	s = unidecode.Unidecode(norm.NFC.String(strings.TrimSpace(s)))
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return notIdent.ReplaceAllString(s, "")
}

// NormalizeNames применяет NormalizeName к списку.
func NormalizeNames(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = NormalizeName(s)
	}
	return out
}
