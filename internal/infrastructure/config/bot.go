package config

import "time"

// BotConfig holds the decision loop's cadence and defensive thresholds.
type BotConfig struct {
	// Random periodic wake cadence.
	SleepMin time.Duration `mapstructure:"sleep_min" validate:"required"`
	SleepMax time.Duration `mapstructure:"sleep_max" validate:"required,gtefield=SleepMin"`

	// Window from which defensive wake times are drawn, counting back from
	// a hostile arrival.
	MinTimeBeforeAttackToAct time.Duration `mapstructure:"min_time_before_attack_to_act" validate:"required"`
	MaxTimeBeforeAttackToAct time.Duration `mapstructure:"max_time_before_attack_to_act" validate:"required,gtefield=MinTimeBeforeAttackToAct"`

	TryRecallingSavedFleet bool          `mapstructure:"try_recalling_saved_fleet"`
	MaxReturnFlightTime    time.Duration `mapstructure:"max_return_flight_time" validate:"required"`

	HarvestExpeditionDebris bool `mapstructure:"harvest_expedition_debris"`
	HarvestSpeed            int  `mapstructure:"harvest_speed" validate:"min=1,max=10"`
}
