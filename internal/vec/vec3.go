package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами (ячейка решётки)
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Кардинальные направления. Порядок фиксирован: от него зависит порядок обхода в BFS.
var (
	Up    = Vec3{0, 1, 0}
	Down  = Vec3{0, -1, 0}
	East  = Vec3{1, 0, 0}
	West  = Vec3{-1, 0, 0}
	South = Vec3{0, 0, 1}
	North = Vec3{0, 0, -1}
)

// Directions6 шесть осевых направлений
var Directions6 = [6]Vec3{East, West, Up, Down, South, North}

// Directions4 горизонтальные соседи в порядке N, E, S, W
var Directions4 = [4]Vec3{North, East, South, West}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает вектор на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Manhattan возвращает манхэттенское расстояние до другого вектора
func (v Vec3) Manhattan(other Vec3) int {
	return abs(v.X-other.X) + abs(v.Y-other.Y) + abs(v.Z-other.Z)
}

// DistanceTo возвращает квадрат евклидова расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Neighbors6 возвращает соседей по граням в порядке Directions6
func (v Vec3) Neighbors6() [6]Vec3 {
	var out [6]Vec3
	for i, d := range Directions6 {
		out[i] = v.Add(d)
	}
	return out
}

// Neighbors4 возвращает горизонтальных соседей в порядке N, E, S, W
func (v Vec3) Neighbors4() [4]Vec3 {
	var out [4]Vec3
	for i, d := range Directions4 {
		out[i] = v.Add(d)
	}
	return out
}

// Less задаёт детерминированный порядок (y, затем x, затем z)
func (v Vec3) Less(other Vec3) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	if v.X != other.X {
		return v.X < other.X
	}
	return v.Z < other.Z
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
