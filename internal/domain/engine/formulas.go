package engine

import (
	"math"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
)

// TechnologyLevels maps a drive name to its researched level. Absent
// entries are treated as not yet researched.
type TechnologyLevels map[Drive]int

// HyperspaceTechnologyLevel is carried separately: it boosts cargo capacity,
// not speed, and is not itself a drive.
const hyperspaceCargoMultiplierPerLevel = 0.05

// Fleet is a ship-count composition, as dispatched or observed on the move.
type Fleet map[ShipKind]int

// CharacterClass is the player's active character class, mirroring
// remote.CharacterClass without importing it (remote already imports this
// package). It biases ship speed, cargo capacity and fuel consumption the
// way the reference client's universe defaults do.
type CharacterClass string

const (
	NoCharacterClass CharacterClass = ""
	Collector        CharacterClass = "collector"
	General          CharacterClass = "general"
	Discoverer       CharacterClass = "discoverer"
)

// Universe-default character-class bonus percentages. The reference client
// reads these per-universe from server data; this bot has no server-data
// fetch in scope, so it carries the documented defaults.
const (
	minerBonusFasterTradingShips               = 0.1
	minerBonusIncreasedCargoCapacityForTraders = 0.25
	warriorBonusFasterCombatShips              = 0.1
	warriorBonusFasterRecyclers                = 0.1
	generalFuelConsumptionFactor               = 0.75
)

func isCargoShip(kind ShipKind) bool {
	return kind == SmallCargo || kind == LargeCargo
}

func isCombatShip(kind ShipKind) bool {
	switch kind {
	case LightFighter, HeavyFighter, Cruiser, Battleship, Battlecruiser, Destroyer, Deathstar, Bomber:
		return true
	default:
		return false
	}
}

// bestDrive returns the drive option a ship will actually fly with, given
// researched technology: the highest-multiplier drive the fleet qualifies
// for, falling back to each ship's minimum-level default drive.
func bestDrive(kind ShipKind, tech TechnologyLevels) DriveOption {
	spec, ok := Ships[kind]
	if !ok || len(spec.Drives) == 0 {
		return DriveOption{}
	}

	for _, opt := range spec.Drives {
		if level, has := tech[opt.Drive]; has && level >= opt.MinLevel {
			return DriveOption{Drive: opt.Drive, MinLevel: level, BaseSpeed: opt.BaseSpeed, BaseFuelConsumption: opt.BaseFuelConsumption}
		}
	}

	last := spec.Drives[len(spec.Drives)-1]
	return DriveOption{Drive: last.Drive, MinLevel: last.MinLevel, BaseSpeed: last.BaseSpeed, BaseFuelConsumption: last.BaseFuelConsumption}
}

// ShipSpeed returns a single ship's actual speed under the given technology
// and active character class: General ships fly combat ships and recyclers
// faster, Collector ships fly cargo ships faster.
func ShipSpeed(kind ShipKind, tech TechnologyLevels, class CharacterClass) float64 {
	drive := bestDrive(kind, tech)
	multiplier := speedMultiplier[drive.Drive]
	speed := float64(drive.BaseSpeed) * (1 + float64(drive.MinLevel)*multiplier)

	switch class {
	case General:
		if isCombatShip(kind) {
			speed += float64(drive.BaseSpeed) * warriorBonusFasterCombatShips
		} else if kind == Recycler {
			speed += float64(drive.BaseSpeed) * warriorBonusFasterRecyclers
		}
	case Collector:
		if isCargoShip(kind) {
			speed += float64(drive.BaseSpeed) * minerBonusFasterTradingShips
		}
	}
	return speed
}

// FuelConsumption returns the fuel a ship with the given base consumption
// burns crossing distance units at speedPercentage (1-100).
func FuelConsumption(baseFuelConsumption, distance, speedPercentage int) int {
	ratio := float64(speedPercentage)/100 + 1
	return 1 + int(math.Round(float64(baseFuelConsumption)*float64(distance)/35000*ratio*ratio))
}

// FlightDuration returns the flight time in seconds for a ship moving at
// shipSpeed across distance units, throttled to speedPercentage.
func FlightDuration(distance int, shipSpeed float64, speedPercentage int) int {
	return int(math.Round(flightDurationExact(distance, shipSpeed, speedPercentage)))
}

// flightDurationExact is the unrounded formula, kept separate so
// FlightDurationOfFleet can round once after picking the slowest ship.
func flightDurationExact(distance int, shipSpeed float64, speedPercentage int) float64 {
	return 35000/float64(speedPercentage)*math.Sqrt(float64(distance)*1000/shipSpeed) + 10
}

// FlightDurationOfFleet returns the duration for the slowest ship in the
// composition, since a fleet travels at its slowest member's speed.
func FlightDurationOfFleet(distance int, fleet Fleet, speedPercentage int, tech TechnologyLevels, class CharacterClass) int {
	slowest := math.MaxFloat64
	for kind, count := range fleet {
		if count <= 0 {
			continue
		}
		if s := ShipSpeed(kind, tech, class); s < slowest {
			slowest = s
		}
	}
	if slowest == math.MaxFloat64 {
		return 0
	}
	return int(math.Round(flightDurationExact(distance, slowest, speedPercentage)))
}

// FuelConsumptionOfFleet sums fuel consumption across every ship in the
// composition. General characters burn less deuterium.
func FuelConsumptionOfFleet(distance int, fleet Fleet, speedPercentage int, tech TechnologyLevels, class CharacterClass) int {
	saveFactor := 1.0
	if class == General {
		saveFactor = generalFuelConsumptionFactor
	}
	total := 0
	for kind, count := range fleet {
		if count <= 0 {
			continue
		}
		drive := bestDrive(kind, tech)
		consumption := int(math.Round(saveFactor * float64(FuelConsumption(drive.BaseFuelConsumption, distance, speedPercentage))))
		total += count * consumption
	}
	return total
}

// CargoCapacityOfFleet sums cargo capacity across the composition, boosted
// by researched hyperspace technology and, for Collector characters, by
// the trading-ship cargo bonus.
func CargoCapacityOfFleet(fleet Fleet, hyperspaceTechnologyLevel int, class CharacterClass) int {
	multiplier := 1 + float64(hyperspaceTechnologyLevel)*hyperspaceCargoMultiplierPerLevel
	total := 0
	for kind, count := range fleet {
		if count <= 0 {
			continue
		}
		spec, ok := Ships[kind]
		if !ok {
			continue
		}
		shipMultiplier := multiplier
		if class == Collector && isCargoShip(kind) {
			shipMultiplier += minerBonusIncreasedCargoCapacityForTraders
		}
		total += int(math.Round(shipMultiplier * float64(count) * float64(spec.CargoCapacity)))
	}
	return total
}

// Distance is re-exported for callers that only import engine for
// ballistics and don't want a second import of coordinates.
func Distance(origin, dest coordinates.Coordinates) int {
	return coordinates.Distance(origin, dest)
}

// IsProbeOnly reports whether a fleet composition consists solely of
// espionage probes — such fleets are never classified as hostile.
func IsProbeOnly(fleet Fleet) bool {
	sawAny := false
	for kind, count := range fleet {
		if count <= 0 {
			continue
		}
		sawAny = true
		if kind != EspionageProbe {
			return false
		}
	}
	return sawAny
}
