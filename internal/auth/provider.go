package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"

	"github.com/hnrobert/ldmgr/internal/userdb"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("user is locked")
	ErrAccountExpired     = errors.New("account has expired")
	ErrUnsupportedHash    = errors.New("unsupported password hash")
)

// Provider is the external identity provider: a credential check followed,
// only on acceptance, by an account-validity check.
type Provider interface {
	Authenticate(username string, password []byte) error
	ValidateAccount(username string) error
}

// ShadowProvider validates against the host shadow database.
type ShadowProvider struct {
	PasswdPath string
	ShadowPath string

	// suVerify is the fallback credential check for hash formats
	// verifyCrypt cannot handle. Swapped out in tests.
	suVerify func(username string, password []byte) (bool, error)
}

func NewShadowProvider() *ShadowProvider {
	return &ShadowProvider{
		PasswdPath: userdb.PasswdPath,
		ShadowPath: userdb.ShadowPath,
		suVerify:   verifyWithSu,
	}
}

func (p *ShadowProvider) Authenticate(username string, password []byte) error {
	sh, err := userdb.LoadShadow(p.ShadowPath)
	if err != nil {
		return fmt.Errorf("%w: load shadow: %v", ErrAuthBackend, err)
	}
	se := sh.Find(username)
	if se == nil {
		return ErrInvalidCredentials
	}
	if se.Hash == "" || strings.HasPrefix(se.Hash, "!") || strings.HasPrefix(se.Hash, "*") {
		return ErrUserLocked
	}
	ok, err := verifyCrypt(se.Hash, password)
	if err != nil {
		if errors.Is(err, ErrUnsupportedHash) {
			ok2, err2 := p.suVerify(username, password)
			if err2 != nil {
				return err2
			}
			if !ok2 {
				return ErrInvalidCredentials
			}
			return nil
		}
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateAccount is called only after the credential check accepted.
func (p *ShadowProvider) ValidateAccount(username string) error {
	if _, err := userdb.Lookup(p.PasswdPath, username); err != nil {
		if errors.Is(err, userdb.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: load passwd: %v", ErrAuthBackend, err)
	}
	sh, err := userdb.LoadShadow(p.ShadowPath)
	if err != nil {
		return fmt.Errorf("%w: load shadow: %v", ErrAuthBackend, err)
	}
	se := sh.Find(username)
	if se == nil {
		return ErrInvalidCredentials
	}
	if se.Expire != "" {
		if days, ok := expireDays(se.Expire); ok {
			if time.Now().Unix()/86400 >= days {
				return ErrAccountExpired
			}
		}
	}
	return nil
}

func expireDays(field string) (int64, bool) {
	var n int64
	for _, c := range field {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

func verifyCrypt(hash string, password []byte) (bool, error) {
	// Support common crypt formats:
	// $1$ (md5-crypt), $5$ (sha256-crypt), $6$ (sha512-crypt).
	// Note: this does NOT support newer formats like yescrypt.
	var crypters []crypt.Crypter
	crypters = append(crypters, sha512_crypt.New())
	crypters = append(crypters, sha256_crypt.New())
	crypters = append(crypters, md5_crypt.New())

	// Try known crypters. Verify returns nil on success.
	for _, c := range crypters {
		if err := c.Verify(hash, password); err == nil {
			return true, nil
		}
	}

	// Detect an obviously unsupported hash prefix.
	// Ubuntu commonly uses yescrypt ($y$).
	if strings.HasPrefix(hash, "$y$") || strings.HasPrefix(hash, "$7$") || strings.HasPrefix(hash, "$2") {
		return false, ErrUnsupportedHash
	}
	return false, nil
}

// HumanAuthError maps an authentication failure to a banner message.
// It must never leak anything derived from the secret.
func HumanAuthError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLockedOut):
		return "Too many failed attempts. Please wait before trying again."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrUserLocked):
		return "This account is locked."
	case errors.Is(err, ErrAccountExpired):
		return "This account has expired."
	default:
		return "Authentication failed."
	}
}
