package dispatcher

import (
	"fmt"

	"github.com/haasonsaas/pluginhost/internal/abi"
)

// Both missing dependencies and cycles surface as CoreInternalError per the
// spec's 4.C step 5: "Missing dependency, or cycle, is CoreInternalError."
func errMissingDependency(plugin, dependency string) error {
	return fmt.Errorf("plugin %q depends on unmounted plugin %q: %w", plugin, dependency, abi.NewServiceError(abi.CoreInternalError))
}

func errDependencyCycle() error {
	return fmt.Errorf("core:init dependency graph has a cycle: %w", abi.NewServiceError(abi.CoreInternalError))
}
