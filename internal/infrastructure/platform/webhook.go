package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/domain"
)

// HeaderHMAC cabecera con la firma del webhook.
const HeaderHMAC = "X-Shopify-Hmac-Sha256"

// VerifyWebhook comprueba la firma HMAC-SHA256 (base64) del cuerpo crudo.
// Sin secreto configurado se rechaza todo.
func VerifyWebhook(secret string, payload []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: secreto de webhook no configurado", domain.ErrInvalidSignature)
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign firma un cuerpo como lo haría la plataforma (pruebas y herramientas).
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
