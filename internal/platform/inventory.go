package platform

import (
	"log/slog"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

// TargetInventory describes one target and its kernel table.
type TargetInventory struct {
	Name    string            `json:"name" yaml:"name"`
	Kernels []vx.TargetKernel `json:"kernels" yaml:"kernels"`
}

// Inventory is a snapshot of what a context holds.
type Inventory struct {
	NumKernels    int               `json:"num_kernels" yaml:"num_kernels"`
	NumModules    int               `json:"num_modules" yaml:"num_modules"`
	NumReferences int               `json:"num_references" yaml:"num_references"`
	Modules       []string          `json:"modules" yaml:"modules"`
	Targets       []TargetInventory `json:"targets" yaml:"targets"`
}

// Describe takes an inventory of c.
func Describe(c *vx.Context) (Inventory, error) {
	inv := Inventory{
		NumKernels:    c.NumKernels(),
		NumModules:    c.NumModules(),
		NumReferences: c.NumReferences(),
		Modules:       c.Modules(),
	}
	for i := 0; i < c.NumTargets(); i++ {
		t, err := c.Target(i)
		if err != nil {
			return Inventory{}, err
		}
		inv.Targets = append(inv.Targets, TargetInventory{Name: t.Name(), Kernels: t.Table()})
	}
	return inv, nil
}

// LogInventory writes the counts of c, then every target with its kernel
// table, at debug level.
func LogInventory(logger *slog.Logger, c *vx.Context) error {
	inv, err := Describe(c)
	if err != nil {
		return err
	}
	logger.Debug("Kernels available.", "count", inv.NumKernels)
	logger.Debug("Modules loaded.", "count", inv.NumModules, "names", inv.Modules)
	logger.Debug("References declared.", "count", inv.NumReferences)
	logger.Debug("Targets available.", "count", len(inv.Targets))
	for _, t := range inv.Targets {
		logger.Debug("Target kernel table.", "target", t.Name, "kernels", len(t.Kernels))
		for _, k := range t.Kernels {
			logger.Debug("Kernel.", "target", t.Name, "enum", int32(k.Enum), "name", k.Name)
		}
	}
	return nil
}
