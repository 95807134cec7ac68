package qr

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	q := NewQRGenerator("secret", "https://pos.test")

	sig := q.Sign("BILL-20261018-0001")
	assert.True(t, q.Verify("BILL-20261018-0001", sig))
	assert.False(t, q.Verify("BILL-20261018-0002", sig))
	assert.False(t, q.Verify("BILL-20261018-0001", ""))
	assert.False(t, NewQRGenerator("other", "").Verify("BILL-20261018-0001", sig))
}

func TestReceiptURL(t *testing.T) {
	q := NewQRGenerator("secret", "https://pos.test")
	raw := q.ReceiptURL("BILL-20261018-0001")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/public/receipts/BILL-20261018-0001", u.Path)
	assert.True(t, q.Verify("BILL-20261018-0001", u.Query().Get("sig")))
}

func TestPNG(t *testing.T) {
	q := NewQRGenerator("secret", "https://pos.test")

	png, err := q.ReceiptQR("BILL-20261018-0001")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	png, err = q.TableQR("table-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	assert.True(t, strings.Contains(q.TableURL("table-1"), "table=table-1"))
}
