package config

// ExpeditionConfig is one named expedition intent to seed at startup,
// decoded into a domain expedition.Intent during wiring.
type ExpeditionConfig struct {
	Name string `mapstructure:"name" validate:"required"`

	OriginGalaxy   int    `mapstructure:"origin_galaxy" validate:"required"`
	OriginSystem   int    `mapstructure:"origin_system" validate:"required"`
	OriginPosition int    `mapstructure:"origin_position" validate:"required"`
	OriginType     string `mapstructure:"origin_type" validate:"required,oneof=planet moon"`

	DestGalaxy   int `mapstructure:"dest_galaxy" validate:"required"`
	DestSystem   int `mapstructure:"dest_system" validate:"required"`
	DestPosition int `mapstructure:"dest_position" validate:"required"`

	// Ship kind name (e.g. "large_cargo") to count.
	Ships map[string]int `mapstructure:"ships" validate:"required"`

	Cargo CargoConfig `mapstructure:"cargo"`

	Speed       int `mapstructure:"speed" validate:"min=1,max=10"`
	HoldingTime int `mapstructure:"holding_time"` // seconds

	Repeat RepeatConfig `mapstructure:"repeat"`
}

// CargoConfig is the resource amounts to carry out on each dispatch.
type CargoConfig struct {
	Metal     int `mapstructure:"metal"`
	Crystal   int `mapstructure:"crystal"`
	Deuterium int `mapstructure:"deuterium"`
}

// RepeatConfig is either "forever" or a finite count.
type RepeatConfig struct {
	Forever bool `mapstructure:"forever"`
	Count   int  `mapstructure:"count"`
}
