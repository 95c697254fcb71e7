package pickup

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Generator renders the code a customer shows at the counter for a pickup order.
type Generator interface {
	Generate(orderID string) ([]byte, error)
}

type QRGenerator struct {
	BaseURL string
	Size    int
}

func (g QRGenerator) Generate(orderID string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	data := fmt.Sprintf("%s/pickup/%s", strings.TrimRight(g.BaseURL, "/"), orderID)
	return qrcode.Encode(data, qrcode.Medium, size)
}
