package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("cryptox: invalid hash format")
)

// argonParams are the Argon2id cost settings recorded in every hash.
type argonParams struct {
	memory      uint32 // KiB
	iterations  uint32
	parallelism uint8
}

// currentParams is what new hashes are made with. Older hashes keep
// verifying with the parameters they were made with.
var currentParams = argonParams{memory: 19 * 1024, iterations: 2, parallelism: 1}

const (
	saltLength = 16
	keyLength  = 32
)

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$hash" string.
type phc struct {
	params argonParams
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory, h.params.iterations, h.params.parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phc{}, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return phc{}, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var h phc
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&h.params.memory, &h.params.iterations, &h.params.parallelism); err != nil {
		return phc{}, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return phc{}, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return phc{}, fmt.Errorf("%w: hash: %v", ErrInvalidHash, err)
	}
	if len(h.key) == 0 {
		return phc{}, fmt.Errorf("%w: empty hash", ErrInvalidHash)
	}
	return h, nil
}

func deriveKey(password string, salt []byte, p argonParams, length uint32) []byte {
	return argon2.IDKey([]byte(password+GetPepper()), salt, p.iterations, p.memory, p.parallelism, length)
}

// HashPassword returns a PHC-format Argon2id hash of password with the
// process pepper appended.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	h := phc{
		params: currentParams,
		salt:   salt,
		key:    deriveKey(password, salt, currentParams, keyLength),
	}
	return h.String(), nil
}

// VerifyPassword checks password against a hash from HashPassword. It
// returns ErrPasswordMismatch on a wrong password and wraps ErrInvalidHash
// when the stored value is unusable.
func VerifyPassword(password, encodedHash string) error {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return err
	}
	computed := deriveKey(password, h.salt, h.params, uint32(len(h.key))) // #nosec G115
	if subtle.ConstantTimeCompare(computed, h.key) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// NeedsRehash reports whether a hash was made with weaker settings than
// HashPassword uses now. Unparseable hashes report true.
func NeedsRehash(encodedHash string) bool {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return true
	}
	return h.params.memory < currentParams.memory ||
		h.params.iterations < currentParams.iterations ||
		h.params.parallelism < currentParams.parallelism ||
		len(h.key) != keyLength
}
