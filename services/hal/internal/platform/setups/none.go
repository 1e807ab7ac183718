//go:build !expander_board

package setups

import "sc16is752-go/types"

var SelectedPlan = ResourcePlan{}

var SelectedSetup = types.HALConfig{}
