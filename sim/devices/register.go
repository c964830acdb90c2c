package devices

import "github.com/homesim/homesim/sim"

// Types lists every device type in this package.
func Types() []*sim.EntityType {
	return []*sim.EntityType{
		BuildingType,
		BatteryType,
		ClockType,
		CoffeeMachineType,
		LampType,
		PVType,
		LuminosityType,
		DemandType,
		GridType,
	}
}

// Register adds every device type to c.
func Register(c *sim.Catalog) error {
	for _, t := range Types() {
		if err := c.Register(t); err != nil {
			return err
		}
	}
	return nil
}
