package storage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocatorCID returns the CIDv1 locator (raw multicodec + sha2-256 multihash)
// derived from data. All blob store implementations key blobs by this.
func LocatorCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Locator returns the string form of the CIDv1 locator for data.
func Locator(data []byte) string {
	id, err := LocatorCID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this is unreachable.
		return ""
	}
	return id.String()
}

// ParseLocator decodes a locator string into its CID form.
func ParseLocator(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return cid.Undef, ErrInvalidLocator
	}
	return id, nil
}
