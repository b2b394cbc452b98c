package httpwire

import (
	"net/url"
	"strings"
)

// Pair — пара key=value из form-urlencoded тела. Порядок пар важен:
// в нём фронтенд добавляет новые устройства.
type Pair struct {
	Key   string
	Value string
}

// Escape кодирует значение для form-urlencoded: пробел → '+',
// всё вне [A-Za-z0-9._~-] → %XX в верхнем регистре.
func Escape(s string) string {
	return url.QueryEscape(s)
}

// Unescape декодирует '+' и %XX. Некорректные последовательности
// не считаются ошибкой и остаются в строке как есть.
func Unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParsePairs разбирает тело вида a=1&b=2 с сохранением порядка.
// Фрагменты без '=' пропускаются.
func ParsePairs(body string) []Pair {
	var pairs []Pair
	for _, part := range strings.Split(body, "&") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Key: Unescape(k), Value: Unescape(v)})
	}
	return pairs
}

// EncodePairs выполняет обратную к ParsePairs операцию.
func EncodePairs(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(p.Value))
	}
	return b.String()
}

// Lookup возвращает значение первой пары с ключом key.
func Lookup(pairs []Pair, key string) (string, bool) {
	for _, p := range pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
