package types

// Appliance categories.
const (
	CategoryLighting   = "Iluminação"
	CategoryKitchen    = "Cozinha"
	CategoryCooling    = "Climatização"
	CategoryLaundry    = "Lavanderia"
	CategoryElectronic = "Eletrônicos"
	CategoryOther      = "Outros"
)

// Categories lists the appliance categories in display order.
var Categories = []string{
	CategoryLighting,
	CategoryKitchen,
	CategoryCooling,
	CategoryLaundry,
	CategoryElectronic,
	CategoryOther,
}

// Preset is a common appliance that can be added with one action.
type Preset struct {
	Name        string  `json:"name"`
	PowerWatts  float64 `json:"power"`
	HoursPerDay float64 `json:"hours"`
	Category    string  `json:"category"`
}

// Presets are the built-in appliance presets.
var Presets = []Preset{
	{Name: "Lâmpada LED", PowerWatts: 9, HoursPerDay: 6, Category: CategoryLighting},
	{Name: "Geladeira", PowerWatts: 150, HoursPerDay: 24, Category: CategoryKitchen},
	{Name: "Televisão", PowerWatts: 100, HoursPerDay: 4, Category: CategoryElectronic},
	{Name: "Ar Condicionado", PowerWatts: 1500, HoursPerDay: 5, Category: CategoryCooling},
	{Name: "Ferro de Engomar", PowerWatts: 1200, HoursPerDay: 0.5, Category: CategoryLaundry},
	{Name: "Micro-ondas", PowerWatts: 800, HoursPerDay: 0.3, Category: CategoryKitchen},
}

// FindPreset returns the preset with the given name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// ResidenceConfigs maps each residence type to its configurations. The first
// entry is the default when the type changes.
var ResidenceConfigs = map[string][]string{
	"Casa":        {"T1", "T2", "T3", "T4", "Tipo 1", "Tipo 2", "Tipo 3", "Outro"},
	"Apartamento": {"Studio", "T1", "T2", "T3", "Cobertura"},
	"Vivenda":     {"T3", "T4", "T5", "T6", "Tipo 3", "Tipo 4", "Tipo 5+"},
	"Dependência": {"T0", "T1", "Suíte", "Tipo 1"},
	"Flat":        {"T1", "T2", "T3", "Duplex"},
	"Outro":       {"Padrão", "Comercial", "Misto"},
}

// ResidenceTypes lists residence types in display order.
var ResidenceTypes = []string{"Casa", "Apartamento", "Vivenda", "Dependência", "Flat", "Outro"}

// Provinces of Mozambique.
var Provinces = []string{
	"Maputo Cidade",
	"Maputo Província",
	"Gaza",
	"Inhambane",
	"Sofala",
	"Manica",
	"Tete",
	"Zambézia",
	"Nampula",
	"Niassa",
	"Cabo Delgado",
}

// DefaultResidenceConfig returns the default configuration for a residence type.
func DefaultResidenceConfig(residenceType string) string {
	if configs, ok := ResidenceConfigs[residenceType]; ok && len(configs) > 0 {
		return configs[0]
	}
	return "Padrão"
}
