package settings

import (
	"encoding/json"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/vault"
)

// Envelope wraps an encrypted config document.
type Envelope struct {
	Encrypted bool            `json:"encrypted"`
	Payload   EnvelopePayload `json:"payload"`
}

// EnvelopePayload accepts the browser's "data" field as an alias of
// "ciphertext" so documents written by the old front end still load.
type EnvelopePayload struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext,omitempty"`
	Data       string `json:"data,omitempty"`
}

func (p EnvelopePayload) vaultPayload() vault.Payload {
	ct := p.Ciphertext
	if ct == "" {
		ct = p.Data
	}
	return vault.Payload{IV: p.IV, Ciphertext: ct}
}

// probe only looks at the marker field of a stored document.
type probe struct {
	Encrypted bool `json:"encrypted"`
}

func isEnvelope(raw []byte) bool {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	return p.Encrypted
}

// Snapshot is a detached copy of the config stamped with the order in
// which it was taken. Writes of older snapshots are dropped.
type Snapshot struct {
	Generation uint64
	Config     *models.Config
}

// StorageStatus describes the persisted document for diagnostics.
type StorageStatus struct {
	Driver         string `json:"driver"`
	Encrypted      bool   `json:"encrypted"`
	Revision       string `json:"revision"`
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
	Generation     uint64 `json:"generation"`
}
