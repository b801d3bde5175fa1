package config

// defaultAreas is the factory catalog shared by both known models.
var defaultAreas = []AreaConfig{
	{Code: "A1", Part: "Eixos", Quantity: 100, Minimum: 20},
	{Code: "A2", Part: "Chassi", Quantity: 50, Minimum: 10},
	{Code: "A3", Part: "Lanternas", Quantity: 200, Minimum: 30},
	{Code: "A4", Part: "Parabrisas", Quantity: 30, Minimum: 5},
	{Code: "A5", Part: "Rodas", Quantity: 80, Minimum: 15},
	{Code: "A6", Part: "Teto", Quantity: 25, Minimum: 5},
}

// Default returns a complete configuration with the factory allow-lists and
// the two known product models. Used by init and as a test fixture.
func Default() *Config {
	cfg := &Config{
		Operators: map[string]string{
			"056B4A806403E9": "Operador Suporte",
			"AD88C801":       "Raquel",
		},
		Admins: map[string]string{
			"3A163602": "Admin Erick",
		},
		Models: []ModelConfig{
			{Code: "313", Areas: cloneAreas(defaultAreas)},
			{Code: "314", Areas: cloneAreas(defaultAreas)},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func cloneAreas(src []AreaConfig) []AreaConfig {
	out := make([]AreaConfig, len(src))
	copy(out, src)
	return out
}
