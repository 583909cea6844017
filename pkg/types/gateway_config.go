package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// GatewayConfig is the personal payment gateway bag persisted as JSONB on a
// market. APIKey holds the sealed ciphertext, never the plaintext credential.
type GatewayConfig struct {
	GatewayName string `json:"gateway_name"`
	APIKey      string `json:"api_key"`
	MerchantID  string `json:"merchant_id"`
}

// Complete reports whether every field a personal charge needs is present.
func (g GatewayConfig) Complete() bool {
	return strings.TrimSpace(g.GatewayName) != "" &&
		strings.TrimSpace(g.APIKey) != "" &&
		strings.TrimSpace(g.MerchantID) != ""
}

// Value marshals the config into JSON for Postgres.
func (g GatewayConfig) Value() (driver.Value, error) {
	buf, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the config.
func (g *GatewayConfig) Scan(value interface{}) error {
	if value == nil {
		*g = GatewayConfig{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("gateway config: unsupported scan type %T", value)
	}

	var result GatewayConfig
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*g = result
	return nil
}
