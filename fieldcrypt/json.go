package fieldcrypt

import "encoding/json"

// EncryptJSON serializes v and seals the result in a standard envelope.
// The envelope format is identical to Encrypt's.
func (c *Cipher) EncryptJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.Encrypt(string(data))
}

// DecryptJSON opens an envelope produced by EncryptJSON and deserializes
// the plaintext into out.
func (c *Cipher) DecryptJSON(envelope string, out any) error {
	plaintext, err := c.Decrypt(envelope)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(plaintext), out)
}

// EncryptStrings seals a list of values, one envelope per element.
func (c *Cipher) EncryptStrings(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		envelope, err := c.Encrypt(v)
		if err != nil {
			return nil, err
		}
		out = append(out, envelope)
	}
	return out, nil
}

// DecryptStrings opens a list of envelopes produced by EncryptStrings.
func (c *Cipher) DecryptStrings(envelopes []string) ([]string, error) {
	out := make([]string, 0, len(envelopes))
	for _, envelope := range envelopes {
		plaintext, err := c.Decrypt(envelope)
		if err != nil {
			return nil, err
		}
		out = append(out, plaintext)
	}
	return out, nil
}
