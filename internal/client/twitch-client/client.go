package twitch_client

import "time"

const (
	twitchApiSchemeHost = "https://api.twitch.tv"
	twitchIDSchemeHost  = "https://id.twitch.tv"

	httpClientTimeout = time.Second * 5

	// The Helix streams/users endpoints accept at most 100 ids per request.
	MaxIDsPerRequest = 100
)

// CredentialsProvider supplies the application credentials. The environment
// takes precedence over the config file, which the provider hides from us.
type CredentialsProvider interface {
	TwitchClientID() string
	TwitchClientSecret() string
}

type TwitchClient struct {
	creds CredentialsProvider

	apiSchemeHost string
	idSchemeHost  string
}

func NewTwitchClient(creds CredentialsProvider) *TwitchClient {
	return &TwitchClient{
		creds:         creds,
		apiSchemeHost: twitchApiSchemeHost,
		idSchemeHost:  twitchIDSchemeHost,
	}
}

// NewTwitchClientWithHosts points the client at alternative API hosts,
// used by tests to talk to a local fake.
func NewTwitchClientWithHosts(creds CredentialsProvider, apiSchemeHost, idSchemeHost string) *TwitchClient {
	return &TwitchClient{
		creds:         creds,
		apiSchemeHost: apiSchemeHost,
		idSchemeHost:  idSchemeHost,
	}
}
