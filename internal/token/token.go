// Package token implements the scan payload codec: a 7-field delimited string
// whose last field is an HMAC-SHA256 signature over the first six.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

// Delimiter separates payload fields on the wire.
const Delimiter = "|"

const fieldCount = 7

// Codec signs and verifies scan payloads with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec constructs a codec. The secret must be non-empty; an empty secret is
// a deployment error the caller aborts startup on.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty secret")
	}
	return &Codec{secret: secret}, nil
}

// Sign produces the full wire payload for the given token fields.
func (c *Codec) Sign(t model.ScanToken) string {
	base := canonical(t)
	return base + Delimiter + c.digest(base)
}

// Verify parses and authenticates a raw payload.
// Returns ErrMalformedPayload on any structural problem and ErrSignatureInvalid
// on digest mismatch. Pure function of its inputs.
func (c *Codec) Verify(raw string) (model.ScanToken, error) {
	parts := strings.Split(raw, Delimiter)
	if len(parts) != fieldCount {
		return model.ScanToken{}, fmt.Errorf("%w: want %d fields, got %d", errs.ErrMalformedPayload, fieldCount, len(parts))
	}

	storeID, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: store id", errs.ErrMalformedPayload)
	}
	bannerID, err := strconv.Atoi(parts[1])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: banner id", errs.ErrMalformedPayload)
	}
	itemID, err := strconv.Atoi(parts[2])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: item id", errs.ErrMalformedPayload)
	}
	lat, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: lat", errs.ErrMalformedPayload)
	}
	lng, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: lng", errs.ErrMalformedPayload)
	}
	if parts[5] == "" {
		return model.ScanToken{}, fmt.Errorf("%w: empty token id", errs.ErrMalformedPayload)
	}

	base := strings.Join(parts[:fieldCount-1], Delimiter)
	want := c.digest(base)
	if !hmac.Equal([]byte(want), []byte(parts[6])) {
		return model.ScanToken{}, errs.ErrSignatureInvalid
	}

	return model.ScanToken{
		StoreID:  storeID,
		BannerID: bannerID,
		ItemID:   itemID,
		Lat:      lat,
		Lng:      lng,
		TokenID:  parts[5],
	}, nil
}

func (c *Codec) digest(base string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonical renders the six signed fields exactly as the issuer does:
// integers plain, coordinates with their original formatting preserved by %v.
func canonical(t model.ScanToken) string {
	return fmt.Sprintf("%d%s%d%s%d%s%v%s%v%s%s",
		t.StoreID, Delimiter, t.BannerID, Delimiter, t.ItemID, Delimiter,
		t.Lat, Delimiter, t.Lng, Delimiter, t.TokenID)
}
