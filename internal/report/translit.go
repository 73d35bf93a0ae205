package report

import (
	"strings"
	"unicode"
)

// Русская и узбекская кириллица
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya", 'ў': "o'", 'қ': "q", 'ғ': "g'", 'ҳ': "h",
}

// Transliterate заменяет кириллицу латиницей, остальные символы не трогает
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		lower := unicode.ToLower(r)
		latin, ok := translit[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if lower != r && latin != "" {
			// заглавная буква: первая латинская тоже заглавная
			latin = strings.ToUpper(latin[:1]) + latin[1:]
		}
		b.WriteString(latin)
	}
	return b.String()
}
