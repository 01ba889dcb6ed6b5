package medicover

// Production endpoints of the Medicover online portal. Both bases can be
// overridden per client, which is how tests point the flow at httptest
// servers.
const (
	defaultAuthBaseURL = "https://login-online24.medicover.pl"
	defaultAPIBaseURL  = "https://api-gateway-online24.medicover.pl"

	// signinRedirectURL is the registered OAuth redirect target. The login
	// flow never loads it for content, only reads the authorization code off
	// its query string.
	signinRedirectURL = "https://online24.medicover.pl/signin-oidc"

	authorizePath = "/connect/authorize"
	tokenPath     = "/connect/token"

	initialFiltersPath = "/service-selector-configurator/api/search-appointments/filters/initial-filters"
	filtersPath        = "/appointments/api/search-appointments/filters"
	slotSearchPath     = "/appointments/api/search-appointments/slots"
	appointmentsPath   = "/appointments/api/person-appointments/appointments"

	oauthClientID = "web"
	oauthScope    = "openid offline_access profile"
)
