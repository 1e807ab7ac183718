// Package platform supplies the buses and boot config for the build target.
package platform

import (
	"sc16is752-go/services/hal/internal/platform/setups"
	"sc16is752-go/types"
)

// InitialConfig is the HAL config the selected board boots with. It is empty
// when no board tag is set.
func InitialConfig() types.HALConfig { return setups.SelectedSetup }

func plan() setups.ResourcePlan { return setups.SelectedPlan }
