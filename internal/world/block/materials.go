package block

// Встроенные материалы
const (
	Stone       Type = "stone"
	Cobblestone Type = "cobblestone"
	Dirt        Type = "dirt"
	Grass       Type = "grass"
	Sand        Type = "sand"
	Wood        Type = "wood"
	Planks      Type = "planks"
	Brick       Type = "brick"
	Glass       Type = "glass"
	Leaves      Type = "leaves"
	Water       Type = "water"
	Iron        Type = "iron"
	Snow        Type = "snow"
)

// Регистрируем встроенные материалы при импорте пакета
func init() {
	Register(Material{Type: Stone, Name: "Stone"})
	Register(Material{Type: Cobblestone, Name: "Cobblestone"})
	Register(Material{Type: Dirt, Name: "Dirt"})
	Register(Material{Type: Grass, Name: "Grass"})
	Register(Material{Type: Sand, Name: "Sand"})
	Register(Material{Type: Wood, Name: "Wood"})
	Register(Material{Type: Planks, Name: "Planks"})
	Register(Material{Type: Brick, Name: "Brick"})
	Register(Material{Type: Iron, Name: "Iron"})
	Register(Material{Type: Snow, Name: "Snow"})
	Register(Material{Type: Glass, Name: "Glass", Transparent: true})
	Register(Material{Type: Leaves, Name: "Leaves", Transparent: true, Foliage: true})
	Register(Material{Type: Water, Name: "Water", Transparent: true, Liquid: true})
}
