package decoder

import (
	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// applyMerge folds the source modules of merge into one module under
// merge.Tag. Sources that were not decoded are skipped; nothing is added when
// no source was decoded.
func applyMerge(result *DeviceResult, merge types.ModuleMerge) {
	fields := make(map[string]types.DecodedField)
	merged := make(map[string]bool, len(merge.Sources))

	for _, source := range merge.Sources {
		module, ok := result.Modules[source]
		if !ok {
			continue
		}
		for name, field := range module.Fields {
			if renamed, ok := merge.Rename[name]; ok {
				name = renamed
			}
			fields[name] = field
		}
		delete(result.Modules, source)
		merged[source] = true
	}

	if len(merged) == 0 {
		return
	}

	tags := result.Tags[:0]
	for _, tag := range result.Tags {
		if !merged[tag] {
			tags = append(tags, tag)
		}
	}
	result.Tags = append(tags, merge.Tag)

	result.Modules[merge.Tag] = ModuleResult{
		ModuleType:  merge.ModuleType,
		Tag:         merge.Tag,
		Description: merge.Description,
		Fields:      fields,
	}
}
