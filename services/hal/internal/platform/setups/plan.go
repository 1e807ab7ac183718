// Package setups holds per-board wiring and the HAL config a board boots
// with. Exactly one setup is compiled in, selected by build tag.
package setups

// I2CPlan names a controller and the pins and clock it is wired with.
type I2CPlan struct {
	ID       string
	SDA, SCL int
	Hz       uint32
}

type ResourcePlan struct {
	I2C []I2CPlan
}
