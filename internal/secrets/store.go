package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
)

// Per-user secret file (0600) with AES-GCM obfuscation. Not a replacement
// for an OS keychain but keeps tokens out of the plain-text config.

const fileName = "keys.json"

// Well-known entries.
const (
	OpenAI     = "openai"
	QuickBooks = "quickbooks"
)

// ErrNotFound is returned by Fetch for names never stored.
var ErrNotFound = errors.New("secret not found")

type secretFile struct {
	Keys map[string]string `json:"keys"` // name -> base64(ciphertext)
}

// Store keeps named secrets in Dir.
type Store struct {
	Dir string
}

// Default stores secrets under the user config dir.
func Default() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, eris.Wrap(err, "secrets: config dir")
	}
	return &Store{Dir: filepath.Join(dir, "donormatch")}, nil
}

func (s *Store) Put(name, value string) error {
	if name = norm(name); name == "" {
		return eris.New("secrets: name required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	if sf.Keys == nil {
		sf.Keys = map[string]string{}
	}
	ct, err := encrypt([]byte(value))
	if err != nil {
		return err
	}
	sf.Keys[name] = base64.StdEncoding.EncodeToString(ct)
	return save(path, sf)
}

func (s *Store) Fetch(name string) (string, error) {
	if name = norm(name); name == "" {
		return "", eris.New("secrets: name required")
	}
	path, err := s.filePath()
	if err != nil {
		return "", err
	}
	sf, err := load(path)
	if err != nil {
		return "", err
	}
	enc, ok := sf.Keys[name]
	if !ok {
		return "", eris.Wrap(ErrNotFound, name)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", eris.Wrapf(err, "secrets: decode %s", name)
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", eris.Wrapf(err, "secrets: decrypt %s", name)
	}
	return string(pt), nil
}

func (s *Store) Delete(name string) error {
	if name = norm(name); name == "" {
		return eris.New("secrets: name required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	delete(sf.Keys, name)
	return save(path, sf)
}

// Names lists stored entries without decrypting them.
func (s *Store) Names() ([]string, error) {
	path, err := s.filePath()
	if err != nil {
		return nil, err
	}
	sf, err := load(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sf.Keys))
	for k := range sf.Keys {
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) filePath() (string, error) {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", eris.Wrap(err, "secrets: mkdir")
	}
	return filepath.Join(s.Dir, fileName), nil
}

func load(path string) (secretFile, error) {
	var sf secretFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return secretFile{}, nil
		}
		return sf, eris.Wrap(err, "secrets: read")
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, eris.Wrap(err, "secrets: parse")
	}
	return sf, nil
}

func save(path string, sf secretFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return eris.Wrap(err, "secrets: write")
	}
	return os.Rename(tmp, path)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func masterKey() []byte {
	base := fmt.Sprintf("donormatch-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, eris.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
