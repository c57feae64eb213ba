// Package engine is the pure ballistics function library the decision core
// treats as an external collaborator: flight duration, fuel consumption,
// cargo capacity and drive-technology speed bonuses. Grounded on the
// reference ships/technology catalogues and calc module.
package engine

// ShipKind identifies one of the game's ship classes.
type ShipKind string

const (
	SmallCargo     ShipKind = "small_cargo"
	LargeCargo     ShipKind = "large_cargo"
	LightFighter   ShipKind = "light_fighter"
	HeavyFighter   ShipKind = "heavy_fighter"
	Cruiser        ShipKind = "cruiser"
	Battleship     ShipKind = "battleship"
	Battlecruiser  ShipKind = "battlecruiser"
	Destroyer      ShipKind = "destroyer"
	Deathstar      ShipKind = "deathstar"
	Bomber         ShipKind = "bomber"
	Recycler       ShipKind = "recycler"
	EspionageProbe ShipKind = "espionage_probe"
	ColonyShip     ShipKind = "colony_ship"
	Pathfinder     ShipKind = "pathfinder"
)

// Drive names a propulsion technology.
type Drive string

const (
	CombustionDrive  Drive = "combustion_drive"
	ImpulseDrive     Drive = "impulse_drive"
	HyperspaceDrive  Drive = "hyperspace_drive"
)

// DriveOption is one propulsion option available to a ship class.
type DriveOption struct {
	Drive               Drive
	MinLevel            int
	BaseSpeed           int
	BaseFuelConsumption int
}

// ShipSpec is the static data for one ship class.
type ShipSpec struct {
	CargoCapacity int
	Drives        []DriveOption // best (highest speed multiplier) first
}

// Ships is the static catalogue of ship classes, keyed by kind.
var Ships = map[ShipKind]ShipSpec{
	SmallCargo: {
		CargoCapacity: 5000,
		Drives: []DriveOption{
			{Drive: ImpulseDrive, MinLevel: 5, BaseSpeed: 10000, BaseFuelConsumption: 20},
			{Drive: CombustionDrive, MinLevel: 2, BaseSpeed: 5000, BaseFuelConsumption: 10},
		},
	},
	LargeCargo: {
		CargoCapacity: 25000,
		Drives: []DriveOption{
			{Drive: CombustionDrive, MinLevel: 6, BaseSpeed: 7500, BaseFuelConsumption: 50},
		},
	},
	LightFighter: {
		CargoCapacity: 50,
		Drives: []DriveOption{
			{Drive: CombustionDrive, MinLevel: 1, BaseSpeed: 12500, BaseFuelConsumption: 20},
		},
	},
	HeavyFighter: {
		CargoCapacity: 100,
		Drives: []DriveOption{
			{Drive: ImpulseDrive, MinLevel: 2, BaseSpeed: 10000, BaseFuelConsumption: 75},
		},
	},
	Cruiser: {
		CargoCapacity: 800,
		Drives: []DriveOption{
			{Drive: ImpulseDrive, MinLevel: 4, BaseSpeed: 15000, BaseFuelConsumption: 300},
		},
	},
	Battleship: {
		CargoCapacity: 1500,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 4, BaseSpeed: 10000, BaseFuelConsumption: 500},
		},
	},
	Battlecruiser: {
		CargoCapacity: 750,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 5, BaseSpeed: 10000, BaseFuelConsumption: 250},
		},
	},
	Destroyer: {
		CargoCapacity: 2000,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 6, BaseSpeed: 5000, BaseFuelConsumption: 1000},
		},
	},
	Deathstar: {
		CargoCapacity: 1000000,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 7, BaseSpeed: 100, BaseFuelConsumption: 1},
		},
	},
	Bomber: {
		CargoCapacity: 500,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 8, BaseSpeed: 5000, BaseFuelConsumption: 1000},
			{Drive: ImpulseDrive, MinLevel: 6, BaseSpeed: 4000, BaseFuelConsumption: 1000},
		},
	},
	Recycler: {
		CargoCapacity: 20000,
		Drives: []DriveOption{
			{Drive: CombustionDrive, MinLevel: 6, BaseSpeed: 2000, BaseFuelConsumption: 300},
		},
	},
	EspionageProbe: {
		CargoCapacity: 5,
		Drives: []DriveOption{
			{Drive: CombustionDrive, MinLevel: 3, BaseSpeed: 100000000, BaseFuelConsumption: 1},
		},
	},
	ColonyShip: {
		CargoCapacity: 7500,
		Drives: []DriveOption{
			{Drive: ImpulseDrive, MinLevel: 4, BaseSpeed: 2500, BaseFuelConsumption: 1000},
		},
	},
	// Pathfinder is the ship sent to harvest expedition debris; its cargo
	// capacity is what sizes the required-pathfinder computation.
	Pathfinder: {
		CargoCapacity: 10000,
		Drives: []DriveOption{
			{Drive: HyperspaceDrive, MinLevel: 2, BaseSpeed: 12000, BaseFuelConsumption: 300},
		},
	},
}

// speedMultiplier is the per-level speed bonus for each drive technology.
var speedMultiplier = map[Drive]float64{
	CombustionDrive: 0.1,
	ImpulseDrive:    0.2,
	HyperspaceDrive: 0.3,
}
