package vault

import (
	"fmt"
	"strings"
)

const contentScheme = "ipfs://"

// ComposeContentURI renders a content address as an ipfs:// URI, the form
// stored inside published documents.
func ComposeContentURI(address string) string {
	return contentScheme + address
}

// ParseContentURI extracts the content address from an ipfs:// URI. A bare
// address passes through unchanged so callers can accept either form.
func ParseContentURI(uri string) (string, error) {
	if strings.HasPrefix(uri, contentScheme) {
		address := strings.SplitN(strings.TrimPrefix(uri, contentScheme), "/", 2)[0]
		if address == "" {
			return "", fmt.Errorf("empty content address in %q", uri)
		}
		return address, nil
	}
	if strings.Contains(uri, "://") {
		return "", fmt.Errorf("unsupported uri scheme in %q", uri)
	}
	if uri == "" {
		return "", fmt.Errorf("empty content address")
	}
	return uri, nil
}

// GatewayURL builds the HTTP retrieval URL for an address on a gateway. A
// bare host implies https; a gateway given with an explicit scheme is used
// as is.
func GatewayURL(gateway, address string) string {
	if !strings.Contains(gateway, "://") {
		gateway = "https://" + gateway
	}
	return gateway + "/ipfs/" + address
}
