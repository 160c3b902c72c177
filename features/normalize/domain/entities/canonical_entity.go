// Package entities holds the closed vocabularies the Normalizer canonicalizes
// free-form technician/request strings against.
package entities

// ServiceDomain is a member of the closed set of canonical service domains.
type ServiceDomain string

// The closed set of canonical service domains.
const (
	DomainTowing     ServiceDomain = "towing"
	DomainFlatTire   ServiceDomain = "flat-tire"
	DomainBattery    ServiceDomain = "battery"
	DomainMechanical ServiceDomain = "mechanical"
	DomainFuel       ServiceDomain = "fuel"
	DomainLockout    ServiceDomain = "lockout"
	DomainWinching   ServiceDomain = "winching"
	DomainEVCharging ServiceDomain = "ev-charging"
	DomainOther      ServiceDomain = "other"
)

// VehicleFamily is a member of the closed set of canonical vehicle families.
type VehicleFamily string

// The closed set of canonical vehicle families.
const (
	VehicleCar        VehicleFamily = "car"
	VehicleBike       VehicleFamily = "bike"
	VehicleCommercial VehicleFamily = "commercial"
	VehicleEV         VehicleFamily = "ev"
)

// ServiceDomains lists the closed set in match-priority-neutral order; used
// for exhaustive alias lookups.
var ServiceDomains = []ServiceDomain{
	DomainTowing, DomainFlatTire, DomainBattery, DomainMechanical,
	DomainFuel, DomainLockout, DomainWinching, DomainEVCharging, DomainOther,
}

// VehicleFamilies lists the closed set of vehicle families.
var VehicleFamilies = []VehicleFamily{VehicleCar, VehicleBike, VehicleCommercial, VehicleEV}

// DomainAliases maps each canonical domain to the free-form strings it
// absorbs. The canonical form itself is always implicitly an alias.
var DomainAliases = map[ServiceDomain][]string{
	DomainTowing: {
		"towing", "tow", "tow truck", "towtruck", "car towing", "vehicle towing",
		"roadside towing", "flatbed towing", "recovery towing",
	},
	DomainFlatTire: {
		"flat tire", "flattire", "flat-tire", "puncture", "tire puncture",
		"tyre puncture", "tire change", "tyre change", "spare tire", "wheel change",
	},
	DomainBattery: {
		"battery", "jump start", "jumpstart", "jump-start", "dead battery",
		"battery boost", "battery jump", "car battery",
	},
	DomainMechanical: {
		"mechanical", "mechanical repair", "breakdown", "engine repair",
		"minor repair", "on site repair", "onsite repair",
	},
	DomainFuel: {
		"fuel", "fuel delivery", "out of fuel", "empty tank", "petrol delivery",
		"diesel delivery", "gas delivery",
	},
	DomainLockout: {
		"lockout", "car lockout", "key lockout", "locked out", "lost key",
		"keys locked in car",
	},
	DomainWinching: {
		"winching", "winch", "stuck vehicle", "ditch recovery", "off road recovery",
	},
	DomainEVCharging: {
		"ev charging", "evcharging", "ev-charging", "electric vehicle charging",
		"battery charging", "charging assistance",
	},
	DomainOther: {
		"other", "miscellaneous", "misc", "general assistance",
	},
}

// VehicleAliases maps each canonical vehicle family to the free-form
// strings it absorbs.
var VehicleAliases = map[VehicleFamily][]string{
	VehicleCar:        {"car", "sedan", "hatchback", "suv", "four wheeler", "4 wheeler"},
	VehicleBike:       {"bike", "motorcycle", "motorbike", "scooter", "two wheeler", "2 wheeler"},
	VehicleCommercial: {"commercial", "truck", "lorry", "van", "bus", "heavy vehicle", "commercial vehicle"},
	VehicleEV:         {"ev", "electric", "electric vehicle", "electric car", "electric bike"},
}
