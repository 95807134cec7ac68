// Package qr renders table-ordering and receipt QR codes with signed URLs.
package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// Size is the PNG edge length in pixels.
const Size = 256

type QRGenerator struct {
	secret  []byte
	baseURL string
}

func NewQRGenerator(secret, baseURL string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:], baseURL: baseURL}
}

// Sign returns the URL-safe HMAC-SHA256 of value.
func (q *QRGenerator) Sign(value string) string {
	mac := hmac.New(sha256.New, q.secret)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compares sig against the signature of value in constant time.
func (q *QRGenerator) Verify(value, sig string) bool {
	if sig == "" {
		return false
	}
	return hmac.Equal([]byte(q.Sign(value)), []byte(sig))
}

// ReceiptURL is the public receipt link printed on a bill.
func (q *QRGenerator) ReceiptURL(billNumber string) string {
	return q.baseURL + "/api/public/receipts/" + url.PathEscape(billNumber) + "?sig=" + q.Sign(billNumber)
}

// TableURL is the guest ordering link for a table.
func (q *QRGenerator) TableURL(tableID string) string {
	v := url.Values{}
	v.Set("table", tableID)
	v.Set("sig", q.Sign("table:"+tableID))
	return q.baseURL + "/order?" + v.Encode()
}

func (q *QRGenerator) ReceiptQR(billNumber string) ([]byte, error) {
	return qrcode.Encode(q.ReceiptURL(billNumber), qrcode.Medium, Size)
}

func (q *QRGenerator) TableQR(tableID string) ([]byte, error) {
	return qrcode.Encode(q.TableURL(tableID), qrcode.Medium, Size)
}
