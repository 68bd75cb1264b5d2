package model

// LifecycleState tracks where a generation is in install → activate → serve.
type LifecycleState string

const (
	StateParsed     LifecycleState = "parsed"
	StateInstalling LifecycleState = "installing"
	StateInstalled  LifecycleState = "installed"
	StateActivating LifecycleState = "activating"
	StateActivated  LifecycleState = "activated"
	StateRedundant  LifecycleState = "redundant"
)

// Generation describes one versioned cache and how eagerly it takes over.
type Generation struct {
	Version      string   `json:"version"`
	StoreName    string   `json:"store_name"`
	Manifest     []string `json:"manifest"`
	ExcludeHosts []string `json:"exclude_hosts"`
	SkipWaiting  bool     `json:"skip_waiting"`
	Claim        bool     `json:"claim"`
}

// StoreName joins prefix and version into the generation's store name.
func StoreName(prefix, version string) string {
	return prefix + version
}
