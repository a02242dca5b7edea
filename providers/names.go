package providers

const (
	// Identifier for ip-api.com.
	NameIPAPI = "ip-api"

	// Identifier for ipinfo.io.
	NameIPInfo = "ipinfo"
)
