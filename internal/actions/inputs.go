// Package actions speaks the GitHub Actions runner protocol: action inputs,
// workflow commands on stdout and PATH registration.
package actions

import (
	"fmt"
	"os"
	"strings"
)

// Input names declared by the action.
const (
	InputCMakeVersion  = "cmakeVersion"
	InputNinjaVersion  = "ninjaVersion"
	InputUseLocalCache = "useLocalCache"
	InputUseCloudCache = "useCloudCache"
)

// Inputs reads action inputs from the INPUT_* environment variables the
// runner sets for each declared input.
type Inputs struct {
	lookup func(string) (string, bool)
}

// NewInputs wraps an environment lookup; nil means os.LookupEnv.
func NewInputs(lookup func(string) (string, bool)) Inputs {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Inputs{lookup: lookup}
}

// EnvName returns the variable the runner uses for the named input.
func EnvName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// Get returns the trimmed input value, or "" when unset.
func (in Inputs) Get(name string) string {
	v, ok := in.lookup(EnvName(name))
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Bool parses a boolean input using the YAML 1.2 core schema spellings the
// runner accepts. set is false when the input is empty.
func (in Inputs) Bool(name string) (value bool, set bool, err error) {
	raw := in.Get(name)
	switch raw {
	case "":
		return false, false, nil
	case "true", "True", "TRUE":
		return true, true, nil
	case "false", "False", "FALSE":
		return false, true, nil
	default:
		return false, true, fmt.Errorf("input %s: %q is not a boolean (use true or false)", name, raw)
	}
}

// IsActions reports whether the process runs inside a GitHub Actions job.
func IsActions(lookup func(string) (string, bool)) bool {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup("GITHUB_ACTIONS")
	return v == "true"
}
