package vec

import (
	"fmt"
	"strconv"
	"strings"
)

// Key каноническая строковая форма координаты ячейки: "x,y,z".
// Две позиции дают один ключ тогда и только тогда, когда они равны.
type Key string

// EncodeKey кодирует позицию в ключ
func EncodeKey(p Vec3) Key {
	buf := make([]byte, 0, 24)
	buf = strconv.AppendInt(buf, int64(p.X), 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, int64(p.Y), 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, int64(p.Z), 10)
	return Key(buf)
}

// Key возвращает ключ позиции
func (v Vec3) Key() Key {
	return EncodeKey(v)
}

// DecodeKey восстанавливает позицию из ключа.
// Ключ должен быть получен из EncodeKey: некорректный ключ означает ошибку программиста, вызывает панику.
func DecodeKey(k Key) Vec3 {
	p, err := ParseKey(string(k))
	if err != nil {
		panic(err)
	}
	return p
}

// ParseKey проверяет и разбирает ключ из внешнего источника (снапшот, HTTP).
// Принимаются только канонические ключи: без пробелов, ведущих нулей и знака "+".
func ParseKey(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("malformed key %q: expected 3 components", s)
	}

	var coords [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Vec3{}, fmt.Errorf("malformed key %q: %w", s, err)
		}
		if strconv.Itoa(n) != part {
			return Vec3{}, fmt.Errorf("malformed key %q: non-canonical component %q", s, part)
		}
		coords[i] = n
	}

	return Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// String реализует fmt.Stringer
func (v Vec3) String() string {
	return string(EncodeKey(v))
}
