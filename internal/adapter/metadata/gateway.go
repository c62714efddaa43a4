package metadata

import "strings"

// DefaultGateways is the ordered list of public gateways tried when a
// content-addressed URI fails to resolve. First success wins.
var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
	"https://dweb.link/ipfs/",
}

// ContentPath extracts the content-addressed path (CID plus any subpath)
// from a URI. It handles both the ipfs:// scheme and HTTP gateway URLs
// containing an /ipfs/ segment. The second return is false for plain HTTP
// URIs, which have no alternate gateways to try.
func ContentPath(uri string) (string, bool) {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		rest = strings.TrimPrefix(rest, "ipfs/")
		return rest, rest != ""
	}
	if _, rest, ok := strings.Cut(uri, "/ipfs/"); ok {
		return rest, rest != ""
	}
	return "", false
}

// GatewayURL rewrites a content-addressed URI to an HTTP URL on the given
// gateway prefix. Non-content-addressed URIs are returned unchanged.
func GatewayURL(uri, gateway string) string {
	if path, ok := ContentPath(uri); ok {
		return gateway + path
	}
	return uri
}
