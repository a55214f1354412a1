package models

// ConfigSource names where the active connection settings came from
type ConfigSource string

const (
	SourceHost   ConfigSource = "host"
	SourcePlugin ConfigSource = "plugin"
	SourceNone   ConfigSource = "none"
)

// Status is the combined view of both configuration sources and the
// facade's current availability
type Status struct {
	HostRedisEnabled bool   `json:"hostRedisEnabled"`
	HostConfigured   bool   `json:"hostConfigured"`
	HostHost         string `json:"hostHost"`
	HostPort         string `json:"hostPort"`
	HostDatabase     string `json:"hostDatabase"`

	PluginConfigured bool   `json:"pluginConfigured"`
	PluginHost       string `json:"pluginHost"`
	PluginPort       string `json:"pluginPort"`
	PluginDatabase   string `json:"pluginDatabase"`

	ConfigSource ConfigSource `json:"configSource"`
	Available    bool         `json:"available"`
	State        string       `json:"state"`

	// Set only when a source is configured
	ActiveHost     string `json:"activeHost,omitempty"`
	ActivePort     string `json:"activePort,omitempty"`
	ActiveDatabase string `json:"activeDatabase,omitempty"`
}

// OperationResult answers mutating endpoints
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReconnectResult answers a reconnect request
type ReconnectResult struct {
	Success      bool         `json:"success"`
	Available    bool         `json:"available"`
	ConfigSource ConfigSource `json:"configSource,omitempty"`
	Message      string       `json:"message"`
}

// TestResult answers the read/write connection test
type TestResult struct {
	Available    bool   `json:"available"`
	WriteSuccess bool   `json:"writeSuccess"`
	ReadValue    string `json:"readValue,omitempty"`
	Message      string `json:"message"`
}

// KeyEntry is one row of a key listing
type KeyEntry struct {
	Key     string `json:"key"`
	FullKey string `json:"fullKey"`
	Type    string `json:"type"`
	TTL     int64  `json:"ttl"`
}

// ScoredMember is one sorted-set member with its score
type ScoredMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// KeyData is the full content of one key. Value holds a string, []string,
// []ScoredMember or map[string]string depending on Type, and nil for
// unsupported types.
type KeyData struct {
	Key   string      `json:"key"`
	Type  string      `json:"type"`
	TTL   int64       `json:"ttl"`
	Value interface{} `json:"value"`
	Error string      `json:"error,omitempty"`
}

// SetDataRequest is the body of POST redis/data. TTL is in seconds; zero or
// negative stores the value without expiry.
type SetDataRequest struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
	TTL   int64   `json:"ttl"`
}
