package external

import "github.com/stripe/stripe-go/v72/client"

// NewStripeClient returns a scoped API client instead of relying on the
// package-global stripe.Key
func NewStripeClient(key string) *client.API {
	sc := &client.API{}
	sc.Init(key, nil)
	return sc
}
