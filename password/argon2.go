package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MaxPasswordBytes bounds the input to the key derivation.
const MaxPasswordBytes = 1024

const phcPrefix = "$argon2id$"

var (
	// ErrPasswordTooLong is returned by Hash for inputs over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned by Verify for strings that are not argon2id PHC
	// hashes within the accepted cost range.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// floor is the weakest configuration NewArgon2 and Verify accept.
var floor = Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

func (c Config) validate() error {
	switch {
	case c.Memory < floor.Memory:
		return fmt.Errorf("password memory must be >= %d KiB", floor.Memory)
	case c.Time < floor.Time:
		return errors.New("password time must be >= 1")
	case c.Parallelism < floor.Parallelism:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < floor.SaltLength:
		return fmt.Errorf("password salt length must be >= %d", floor.SaltLength)
	case c.KeyLength < floor.KeyLength:
		return fmt.Errorf("password key length must be >= %d", floor.KeyLength)
	}
	return nil
}

// Argon2 hashes and verifies passwords in PHC format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash use unpadded standard base64. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 rejects configurations below the minimum cost.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a salted Argon2id hash. Composition rules live in [Policy]; Hash
// only rejects empty and oversized input.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	c := a.config
	key := argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version,
		c.Memory, c.Time, c.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded in constant time. Oversized
// passwords never match.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, nil
	}

	d, err := decode(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

var b64 = base64.RawStdEncoding

type decoded struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decode(encoded string) (decoded, error) {
	var d decoded

	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return d, ErrMalformedHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return d, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return d, ErrMalformedHash
	}
	if version != argon2.Version {
		return d, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	var p uint32
	if n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &d.memory, &d.time, &p); err != nil || n != 3 {
		return d, ErrMalformedHash
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", d.memory, d.time, p) != fields[1] {
		return d, ErrMalformedHash
	}
	if d.memory < floor.Memory || d.time < floor.Time || p < uint32(floor.Parallelism) || p > 255 {
		return d, fmt.Errorf("%w: cost parameters out of range", ErrMalformedHash)
	}
	d.parallelism = uint8(p)

	var err error
	if d.salt, err = b64.DecodeString(fields[2]); err != nil || len(d.salt) < int(floor.SaltLength) {
		return d, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if d.key, err = b64.DecodeString(fields[3]); err != nil || len(d.key) == 0 {
		return d, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return d, nil
}
