package radius

import (
	"crypto/md5"
	"fmt"
)

// blockSize is the MD5 digest width and the chunk size of the RFC 2865
// §5.2 / §5.10 password keystream.
const blockSize = 16

// EncryptData implements the RFC 2865 §5.2 User-Password obfuscation
// keystream: data is zero-padded to a multiple of 16 bytes (an
// already-aligned input still receives a full 16-byte pad block — this
// matches the reference implementation exactly rather than RFC 2865's
// "pad up to" wording, see DESIGN.md open question 3), then XORed block
// by block against MD5(secret || previous-ciphertext-block), with the
// Request Authenticator seeding the first block.
func EncryptData(data, authenticator, secret []byte) []byte {
	pad := blockSize - len(data)%blockSize
	buf := make([]byte, len(data)+pad)
	copy(buf, data)
	encryptBlocks(buf, authenticator, secret)
	return buf
}

// DecryptData reverses EncryptData. Because the keystream is XORed with
// padding, and the padding is always zero bytes, this implementation
// strips ALL trailing zero bytes from the recovered plaintext — including
// any that were genuinely part of the password, not just padding. A
// password ending in a 0x00 byte cannot round-trip; this is preserved
// from the reference implementation rather than corrected (DESIGN.md open
// question 1).
func DecryptData(data, authenticator, secret []byte) []byte {
	plain := decryptBlocks(data, authenticator, secret)
	i := len(plain)
	for i > 0 && plain[i-1] == 0 {
		i--
	}
	return plain[:i]
}

// encryptBlocks XORs buf in place, block by block: buf[i] ^= MD5(secret ||
// prev), where prev is the authenticator for the first block and the
// just-produced ciphertext block thereafter. len(buf) must already be a
// multiple of blockSize.
func encryptBlocks(buf, seed, secret []byte) {
	prev := seed
	for off := 0; off < len(buf); off += blockSize {
		k := md5Sum(secret, prev)
		block := buf[off : off+blockSize]
		for j := range block {
			block[j] ^= k[j]
		}
		prev = block
	}
}

// decryptBlocks is encryptBlocks' inverse, returning a new slice: the
// chain is keyed on ciphertext, which here is the input, not the output.
func decryptBlocks(data, seed, secret []byte) []byte {
	plain := make([]byte, len(data))
	prev := seed
	for off := 0; off+blockSize <= len(data); off += blockSize {
		cipher := data[off : off+blockSize]
		k := md5Sum(secret, prev)
		block := plain[off : off+blockSize]
		for j := 0; j < blockSize; j++ {
			block[j] = cipher[j] ^ k[j]
		}
		prev = cipher
	}
	return plain
}

// md5Sum computes MD5(secret || chain).
func md5Sum(secret, chain []byte) []byte {
	h := md5.New()
	h.Write(secret)
	h.Write(chain)
	return h.Sum(nil)
}

// SaltEncryptData implements the RFC 2868 §3.5 Tunnel-Password salted
// variant. An empty data value encrypts to an empty value. Otherwise the
// output is salt (2 bytes) || length-byte || data || zero-pad, where the
// region after the salt is padded so its own length is a multiple of 16
// bytes, and the keystream chain is seeded with authenticator || salt (18
// bytes fed to MD5 as a whole) instead of the bare authenticator. Unlike
// EncryptData, this region is pre-sized to land exactly on a 16-byte
// boundary, so no further padding is ever added.
func SaltEncryptData(data, authenticator, salt, secret []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	pad := 15 - len(data)%blockSize
	region := make([]byte, 1+len(data)+pad)
	region[0] = byte(len(data))
	copy(region[1:], data)

	seed := make([]byte, 0, len(authenticator)+len(salt))
	seed = append(seed, authenticator...)
	seed = append(seed, salt...)
	encryptBlocks(region, seed, secret)

	out := make([]byte, 0, len(salt)+len(region))
	out = append(out, salt...)
	out = append(out, region...)
	return out
}

// SaltDecryptData reverses SaltEncryptData. Inputs of length <= 1 are
// rejected as malformed; inputs of length <= 3 (salt plus at most one
// padding byte, no room for a length byte and data) decrypt to empty.
// A decrypted length byte exceeding the remaining ciphertext is reported
// as ErrMalformedAttribute, since that most often means the shared secret
// is wrong rather than the data being genuinely longer.
func SaltDecryptData(data, authenticator, secret []byte) ([]byte, error) {
	if len(data) <= 1 {
		return nil, fmt.Errorf("salt encrypted attribute too short: %w", ErrMalformedAttribute)
	}
	if len(data) <= 3 {
		return nil, nil
	}

	salt := data[:2]
	cipher := data[2:]

	seed := make([]byte, 0, len(authenticator)+len(salt))
	seed = append(seed, authenticator...)
	seed = append(seed, salt...)

	plain := decryptBlocks(cipher, seed, secret)
	if len(plain) == 0 {
		return nil, fmt.Errorf("salt encrypted attribute too short: %w", ErrMalformedAttribute)
	}

	n := int(plain[0])
	if n > len(data)-3 {
		return nil, fmt.Errorf("tunnel password is too long (shared secret might be wrong): %w", ErrMalformedAttribute)
	}
	return plain[1 : 1+n], nil
}

// EncryptUserPassword encrypts a cleartext password for the User-Password
// attribute (RFC 2865 §5.2), a thin dictionary-facing wrapper over
// EncryptData named after the RFC attribute it serves.
func EncryptUserPassword(password string, authenticator, secret []byte) []byte {
	return EncryptData([]byte(password), authenticator, secret)
}

// DecryptUserPassword recovers the cleartext password from a User-Password
// attribute's value bytes.
func DecryptUserPassword(value, authenticator, secret []byte) string {
	return string(DecryptData(value, authenticator, secret))
}

// EncryptTunnelPassword encrypts a cleartext password for the
// Tunnel-Password attribute (RFC 2868 §3.5).
func EncryptTunnelPassword(password string, authenticator, salt, secret []byte) []byte {
	return SaltEncryptData([]byte(password), authenticator, salt, secret)
}

// DecryptTunnelPassword recovers the cleartext password from a
// Tunnel-Password attribute's value bytes.
func DecryptTunnelPassword(value, authenticator, secret []byte) (string, error) {
	plain, err := SaltDecryptData(value, authenticator, secret)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// VerifyCHAPPassword checks a CHAP-Password attribute (RFC 2865 §5.3)
// against a cleartext password and CHAP-Challenge: the attribute value is
// one identifier byte followed by a 16-byte MD5 response, where response
// == MD5(id || password || challenge).
func VerifyCHAPPassword(chapPassword, challenge []byte, password string) bool {
	if len(chapPassword) != 17 {
		return false
	}
	id := chapPassword[0]
	want := chapPassword[1:]

	h := md5.New()
	h.Write([]byte{id})
	h.Write([]byte(password))
	h.Write(challenge)
	got := h.Sum(nil)

	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
