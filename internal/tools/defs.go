package tools

import (
	"sort"

	"getcmake/internal/catalog"
)

// Tool names, also used as catalog names.
const (
	CMake = "cmake"
	Ninja = "ninja"
)

// ToolsetName is the local tool cache entry holding both tools.
const ToolsetName = "cmake-and-ninja"

// ToolDefinition contains what the engine needs to know about a managed tool.
type ToolDefinition struct {
	Name          string
	Executable    string
	VersionSwitch string
	// OwnDir means the archive has no top-level directory of its own and is
	// extracted into one named after the archive.
	OwnDir bool
	// FixExecutable renames a differently spelled executable to Executable
	// after extraction.
	FixExecutable bool
}

var toolDefinitions = map[string]ToolDefinition{
	CMake: {
		Name:          CMake,
		Executable:    "cmake",
		VersionSwitch: "--version",
	},
	Ninja: {
		Name:          Ninja,
		Executable:    "ninja",
		VersionSwitch: "--version",
		OwnDir:        true,
		FixExecutable: true,
	},
}

// ExecutableName returns the executable file name of def on p.
func (def ToolDefinition) ExecutableName(p catalog.Platform) string {
	if p.IsWindows() {
		return def.Executable + ".exe"
	}
	return def.Executable
}

// KnownTools returns the list of managed tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
