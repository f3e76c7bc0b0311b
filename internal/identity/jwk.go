package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"permadeploy/internal/pd"
)

// requiredFields are the members an RSA private JWK must carry to be usable
// for signing uploads.
var requiredFields = []string{"kty", "n", "e", "d", "p", "q", "dp", "dq", "qi"}

// Key is a parsed RSA JSON Web Key. Raw keeps the original bytes so the
// stored material is exactly what the user supplied.
type Key struct {
	Fields map[string]string
	Raw    []byte
}

// ParseKey parses and structurally validates key material.
func ParseKey(data []byte) (*Key, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", pd.ErrInvalidKeyFormat, err)
	}
	if obj == nil {
		return nil, pd.ErrInvalidKeyFormat
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(fields[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", pd.ErrInvalidKeyFields, strings.Join(missing, ", "))
	}
	if fields["kty"] != "RSA" {
		return nil, fmt.Errorf("%w: unsupported key type %q", pd.ErrInvalidKeyFields, fields["kty"])
	}

	return &Key{Fields: fields, Raw: data}, nil
}

// Address returns the network address of the key.
func (k *Key) Address() (string, error) {
	return addressFromModulus(k.Fields["n"])
}

// DeriveAddress computes the network address for key material: the
// unpadded base64url SHA-256 digest of the decoded public modulus. Only the
// public part of the key is consulted.
func DeriveAddress(data []byte) (string, error) {
	var obj struct {
		N string `json:"n"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", pd.ErrInvalidKeyFormat, err)
	}
	return addressFromModulus(obj.N)
}

func addressFromModulus(n string) (string, error) {
	if n == "" {
		return "", fmt.Errorf("%w: missing modulus", pd.ErrDerivationFailed)
	}
	modulus, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(n, "="))
	if err != nil {
		return "", fmt.Errorf("%w: decoding modulus: %v", pd.ErrDerivationFailed, err)
	}
	sum := sha256.Sum256(modulus)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
