package auth

import "fmt"

// Platform resolves a short platform code to the base URL pair the dispatcher
// picks from per descriptor url_kind.
type Platform struct {
	Code       string
	APIURL     string
	GatewayURL string
}

// Known shared platforms. Private deployments register overrides instead.
var platforms = map[string]Platform{
	"qg1": {Code: "qg1", APIURL: "https://qualysapi.qg1.apps.qualys.com", GatewayURL: "https://gateway.qg1.apps.qualys.com"},
	"qg2": {Code: "qg2", APIURL: "https://qualysapi.qg2.apps.qualys.com", GatewayURL: "https://gateway.qg2.apps.qualys.com"},
	"qg3": {Code: "qg3", APIURL: "https://qualysapi.qg3.apps.qualys.com", GatewayURL: "https://gateway.qg3.apps.qualys.com"},
	"qg4": {Code: "qg4", APIURL: "https://qualysapi.qg4.apps.qualys.com", GatewayURL: "https://gateway.qg4.apps.qualys.com"},
}

// ResolvePlatform returns the base URL pair for a platform code.
func ResolvePlatform(code string) (Platform, error) {
	if p, ok := platforms[code]; ok {
		return p, nil
	}
	return Platform{}, fmt.Errorf("unknown platform code %q", code)
}

// Override returns a Platform with caller-supplied base URLs for private
// deployments. Both URLs must be absolute; no validation beyond non-empty is
// applied here.
func Override(code, apiURL, gatewayURL string) Platform {
	return Platform{Code: code, APIURL: apiURL, GatewayURL: gatewayURL}
}
