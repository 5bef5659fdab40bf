package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/roomforge/roomforge/pkg/generate"
)

// loadPreset reads generation options from a TOML file. Unknown keys
// are rejected so a typoed preset fails loudly instead of silently
// falling back to defaults.
//
// Example preset:
//
//	width = 80
//	height = 60
//	max_rooms = 24
//	primary_width = 5
//	redundancy_ratio = 0.2
func loadPreset(path string) (generate.Options, error) {
	var opts generate.Options
	meta, err := toml.DecodeFile(path, &opts)
	if err != nil {
		return generate.Options{}, fmt.Errorf("preset %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return generate.Options{}, fmt.Errorf("preset %s: unknown key %q", path, undecoded[0].String())
	}
	return opts, nil
}
