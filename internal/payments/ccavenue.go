package payments

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// ccavenueIV is the fixed initialization vector the gateway's scheme
// prescribes for every request and response.
var ccavenueIV = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

// CCAvenueCipher implements the gateway's shared-secret scheme: AES-128-CBC
// with the key being the raw MD5 digest of the merchant working key, and
// hex-encoded ciphertext bodies.
type CCAvenueCipher struct {
	block cipher.Block
}

// NewCCAvenueCipher derives the AES key from the working key.
func NewCCAvenueCipher(workingKey string) (*CCAvenueCipher, error) {
	if workingKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ccavenue working key required")
	}
	sum := md5.Sum([]byte(workingKey))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive cipher key")
	}
	return &CCAvenueCipher{block: block}, nil
}

// Encrypt produces the hex-encoded ciphertext of an outbound request body.
func (c *CCAvenueCipher) Encrypt(plain string) (string, error) {
	padded := padPKCS7([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, ccavenueIV).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt for an inbound response body.
func (c *CCAvenueCipher) Decrypt(encHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(encHex))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeSignature, err, "response is not valid hex")
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", pkgerrors.New(pkgerrors.CodeSignature, "response length is not a cipher block multiple")
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, ccavenueIV).CryptBlocks(out, raw)
	unpadded, err := unpadPKCS7(out, aes.BlockSize)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeSignature, err, "response padding invalid")
	}
	return string(unpadded), nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}

// parseGatewayResponse splits the decrypted `&`-delimited `=`-assigned body,
// URL-decoding each value. Malformed pairs keep their raw value.
func parseGatewayResponse(body string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		key := parts[0]
		value := ""
		if len(parts) == 2 {
			value = parts[1]
			if decoded, err := url.QueryUnescape(value); err == nil {
				value = decoded
			}
		}
		fields[key] = value
	}
	return fields
}

// PaymentRequest is what the client posts to the gateway's hosted page.
type PaymentRequest struct {
	EncRequest string `json:"encRequest"`
	AccessCode string `json:"accessCode"`
}

// ResponseOutcome reports where the buyer should be redirected after the
// gateway posts back, and what the decrypted status was.
type ResponseOutcome struct {
	RedirectURL string
	RawStatus   string
}

// CCAvenueService implements the symmetric-cipher gateway adapter.
type CCAvenueService struct {
	cfg    config.CCAvenueConfig
	cipher *CCAvenueCipher
	orders orderCompleter
	logg   *logger.Logger
}

// NewCCAvenueService wires the CCAvenue adapter.
func NewCCAvenueService(cfg config.CCAvenueConfig, orders orderCompleter, logg *logger.Logger) (*CCAvenueService, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	c, err := NewCCAvenueCipher(cfg.WorkingKey)
	if err != nil {
		return nil, err
	}
	return &CCAvenueService{cfg: cfg, cipher: c, orders: orders, logg: logg}, nil
}

// BuildPaymentRequest encrypts the merchant parameters for a pending order.
func (s *CCAvenueService) BuildPaymentRequest(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*PaymentRequest, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	params := url.Values{}
	params.Set("merchant_id", s.cfg.MerchantID)
	params.Set("order_id", orderID.String())
	params.Set("amount", amount.StringFixed(2))
	params.Set("currency", "INR")
	params.Set("redirect_url", s.cfg.RedirectURL)
	params.Set("cancel_url", s.cfg.CancelURL)

	encrypted, err := s.cipher.Encrypt(params.Encode())
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{EncRequest: encrypted, AccessCode: s.cfg.AccessCode}, nil
}

// HandleResponse decrypts the gateway's post-back and maps its order_status
// to the three contractual outcomes. Only Success and Aborted mutate state.
func (s *CCAvenueService) HandleResponse(ctx context.Context, encResponse string) (*ResponseOutcome, error) {
	if strings.TrimSpace(encResponse) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "encrypted response missing")
	}

	plain, err := s.cipher.Decrypt(encResponse)
	if err != nil {
		return nil, err
	}
	fields := parseGatewayResponse(plain)

	orderID, err := uuid.Parse(fields["order_id"])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "response order id invalid")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithGateway(ctx, enums.GatewayCCAvenue.String())

	status := fields["order_status"]
	switch status {
	case "Success":
		trackingID := fields["tracking_id"]
		if _, err := s.orders.CompletePayment(ctx, orderID, enums.GatewayCCAvenue, trackingID); err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "gateway reported success")
		return &ResponseOutcome{RedirectURL: s.cfg.SuccessURL, RawStatus: status}, nil
	case "Aborted":
		if err := s.orders.DeletePendingOrder(ctx, orderID); err != nil {
			// Nothing left to delete means an earlier post-back already
			// handled this order. The browser still needs its redirect.
			appErr := pkgerrors.As(err)
			if appErr == nil || (appErr.Code() != pkgerrors.CodeStateConflict && appErr.Code() != pkgerrors.CodeNotFound) {
				return nil, err
			}
			s.logg.Warn(ctx, "gateway repeated aborted post-back")
		} else {
			s.logg.Info(ctx, "gateway reported aborted, pending order removed")
		}
		return &ResponseOutcome{RedirectURL: s.cfg.CancelURL, RawStatus: status}, nil
	default:
		s.logg.Warn(ctx, "gateway reported status "+status)
		return &ResponseOutcome{RedirectURL: s.cfg.DefaultURL, RawStatus: status}, nil
	}
}
