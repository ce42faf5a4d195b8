package api

type HealthResponse struct {
	Status   string `json:"status" description:"Service status"`
	Version  string `json:"version" description:"API version"`
	Engine   string `json:"engine" description:"Engine backing the query endpoints"`
	AuthMode string `json:"auth_mode" description:"Authentication mode: disabled, api_key, token or api_key+token"`
	Cache    bool   `json:"cache_enabled" description:"Whether LLM responses are cached"`
}

type CacheClearResponse struct {
	Status  string `json:"status" description:"cleared or disabled"`
	Cleared int64  `json:"cleared" description:"Number of cache entries removed"`
}

// Info describes the running service for the health endpoint.
type Info struct {
	Version  string
	Engine   string
	AuthMode string
}
