/*
Package clients provides a typed HTTP client for the agreement API.

AgreementClient implements api.AgreementProvider over HTTP. It carries the
caller's access token on every request and rebuilds typed errors from
non-200 responses, so remote failures classify the same way as local ones:

	client := &clients.AgreementClient{
	    ServerAddr:  "https://agreements.example.com",
	    AccessToken: token,
	}

	summaries, err := client.ListAgreements()
	if interfaces.KindOf(err) == interfaces.KindUnauthorized {
	    // session expired, re-authenticate
	}

MockAgreementProvider is a testify mock of the same interface for tests.
*/
package clients
