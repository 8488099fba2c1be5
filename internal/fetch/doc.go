// Package fetch holds the pieces shared by the provider clients: the failure
// taxonomy recorded for every key that could not be fetched, the bounded
// exponential retry policy, and the request throttle shared by all workers.
//
// Classification rules:
//
//	NotFound          - the provider has no data for the key (delisted, bad symbol,
//	                    empty range). Never retried.
//	RateLimited       - the provider asked us to slow down (429 and friends). Retried;
//	                    once retries are exhausted it is reported as NetworkError.
//	NetworkError      - transport failures, timeouts, 5xx. Retried.
//	MalformedResponse - the payload did not match the expected structure. Never retried.
package fetch
