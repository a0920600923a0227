package block

import (
	"sort"
	"sync"
)

// Type имя материала блока ("stone", "glass", ...)
type Type string

// Material описывает свойства материала, которые читает внешний рендерер и UI
type Material struct {
	Type        Type   // Идентификатор материала
	Name        string // Отображаемое имя
	Transparent bool   // Пропускает свет (стекло, листва, вода)
	Foliage     bool   // Анимируется ветром
	Liquid      bool   // Жидкость
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Type]Material)
)

// Register добавляет материал в регистр (повторная регистрация перезаписывает свойства)
func Register(m Material) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[m.Type] = m
}

// Get возвращает материал по типу
func Get(t Type) (Material, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, exists := registry[t]
	return m, exists
}

// IsKnown проверяет, зарегистрирован ли материал.
// Хранилище принимает и незарегистрированные типы; проверка нужна только на границе ввода.
func IsKnown(t Type) bool {
	_, exists := Get(t)
	return exists
}

// Types возвращает зарегистрированные типы в алфавитном порядке
func Types() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
