package config

// defaultSignatureUpdateURL mirrors the compiled-in signature set's
// upstream source for the `update` command.
const defaultSignatureUpdateURL = "https://raw.githubusercontent.com/asteroid-belt/aegis/main/signatures.yaml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:            DefaultBaseDir(),
		FailOnSeverity:     "HIGH",
		OutputFormat:       "table",
		SignatureUpdateURL: defaultSignatureUpdateURL,
	}
}
