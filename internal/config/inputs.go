package config

import (
	"errors"

	"getcmake/internal/actions"
)

// ApplyInputs overlays action inputs on the configuration. Inputs left empty
// keep the value from the config file.
func (c *Config) ApplyInputs(in actions.Inputs) error {
	if v := in.Get(actions.InputCMakeVersion); v != "" {
		c.CMakeVersion = v
	}
	if v := in.Get(actions.InputNinjaVersion); v != "" {
		c.NinjaVersion = v
	}

	var errs []error
	if v, set, err := in.Bool(actions.InputUseLocalCache); err != nil {
		errs = append(errs, err)
	} else if set {
		c.LocalCache.Enabled = boolPtr(v)
	}
	if v, set, err := in.Bool(actions.InputUseCloudCache); err != nil {
		errs = append(errs, err)
	} else if set {
		c.RemoteCache.Enabled = boolPtr(v)
	}
	return errors.Join(errs...)
}
