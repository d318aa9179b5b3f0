package instrument

import (
	"foresight.thundra.io/cli/internal/core/argline"
	"foresight.thundra.io/cli/internal/core/pom"
)

// ArgLineParameter is the Surefire/Failsafe configuration parameter that
// carries JVM flags for forked test JVMs.
const ArgLineParameter = "argLine"

// ApplyAgent merges the composed agent arguments into the plugin's argLine,
// creating <configuration> and <argLine> when absent. Other configuration
// children are left untouched. It returns the value written.
func ApplyAgent(plugin *pom.Plugin, composed string) string {
	cfg := plugin.EnsureConfiguration()
	cfg.Ensure(ArgLineParameter)
	current, _ := cfg.Value(ArgLineParameter)

	merged := argline.Merge(current, composed)
	cfg.SetValue(ArgLineParameter, merged)
	return merged
}
