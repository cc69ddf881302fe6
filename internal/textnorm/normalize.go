// textnorm приводит произвольный текст к канонической последовательности
// токенов: строчные латинские буквы, разделённые пробельными символами.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize возвращает токены текста в исходном порядке.
//
// Правила:
//   - пустой текст -> пустая последовательность (nil), не ошибка;
//   - текст приводится к нижнему регистру;
//   - удаляется всё, кроме 'a'..'z' и пробельных символов
//     (цифры, пунктуация, буквы с диакритикой, нелатинские буквы);
//   - разбиение по сериям пробельных символов, пустые токены отбрасываются.
//
// Удаление символа склеивает его соседей: "don't" -> "dont", "U.S." -> "us".
func Normalize(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if ('a' <= r && r <= 'z') || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return nil
	}

	return tokens
}

// Render склеивает токены через одиночный пробел.
// Normalize(Render(tokens)) == tokens для любого результата Normalize.
func Render(tokens []string) string {
	return strings.Join(tokens, " ")
}
