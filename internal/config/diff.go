package config

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CanonicalizerChanged is true when any hot-reloadable canonicalizer
	// setting changed. New caption streams pick up the new settings; open
	// streams keep the canonicalizer they started with.
	CanonicalizerChanged bool

	// RestartRequired lists the changed settings that only take effect
	// after a restart, by YAML path.
	RestartRequired []string
}

// Changed reports whether d contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CanonicalizerChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oc, nc := old.Canonicalizer, new.Canonicalizer
	if oc.DisableNumeric != nc.DisableNumeric ||
		oc.FuzzyBooks != nc.FuzzyBooks ||
		oc.PhoneticThreshold != nc.PhoneticThreshold ||
		oc.FuzzyThreshold != nc.FuzzyThreshold {
		d.CanonicalizerChanged = true
	}

	restart := func(changed bool, path string) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, path)
		}
	}
	restart(old.Server.ListenAddr != new.Server.ListenAddr, "server.listen_addr")
	restart(!tlsEqual(old.Server.TLS, new.Server.TLS), "server.tls")
	restart(oc.CatalogPath != nc.CatalogPath, "canonicalizer.catalog_path")
	restart(old.Archive != new.Archive, "archive")
	restart(old.Telemetry != new.Telemetry, "telemetry")

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
