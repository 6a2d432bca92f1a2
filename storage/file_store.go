package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/meshrelay/beacon/crypto"
	"github.com/meshrelay/beacon/peer"
)

const (
	pbkdf2Iterations = 100000
	encryptionVersion = 1
	saltSize          = 32
)

// FileStore is a filesystem-backed Store. Identity material is
// encrypted at rest with AES-256-GCM under a key derived from a caller
// supplied passphrase via PBKDF2, behind a version header; everything
// else is written as plain JSON, with no schema version field, using
// atomic temp-file-then-rename writes.
type FileStore struct {
	mu            sync.Mutex
	dataDir       string
	saltFile      string
	identityFile  string
	messagesFile  string
	dupCacheFile  string
	trustFile     string
	encryptionKey [32]byte
}

// NewFileStore opens (creating if absent) a file-backed store rooted at
// dataDir, deriving its identity-encryption key from passphrase.
func NewFileStore(dataDir string, passphrase []byte) (*FileStore, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("storage: passphrase must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create data directory: %w", err)
	}

	fs := &FileStore{
		dataDir:      dataDir,
		saltFile:     filepath.Join(dataDir, ".salt"),
		identityFile: filepath.Join(dataDir, "identity.dat"),
		messagesFile: filepath.Join(dataDir, "messages.json"),
		dupCacheFile: filepath.Join(dataDir, "dupcache_snapshot.json"),
		trustFile:    filepath.Join(dataDir, "trust.json"),
	}

	salt, err := fs.loadOrGenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("storage: initialize salt: %w", err)
	}

	derived := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New)
	copy(fs.encryptionKey[:], derived)
	crypto.ZeroBytes(derived)
	crypto.ZeroBytes(passphrase)

	return fs, nil
}

func (fs *FileStore) loadOrGenerateSalt() ([]byte, error) {
	data, err := os.ReadFile(fs.saltFile)
	if err == nil {
		if len(data) != saltSize {
			return nil, fmt.Errorf("invalid salt file size: got %d, want %d", len(data), saltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt file: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.WriteFile(fs.saltFile, salt, 0o600); err != nil {
		return nil, fmt.Errorf("save salt: %w", err)
	}
	return salt, nil
}

func (fs *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(fs.encryptionKey[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (fs *FileStore) writeEncrypted(path string, plaintext []byte) error {
	gcm, err := fs.gcm()
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 2+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(out[0:2], encryptionVersion)
	copy(out[2:2+len(nonce)], nonce)
	copy(out[2+len(nonce):], ciphertext)

	return atomicWrite(path, out)
}

func (fs *FileStore) readEncrypted(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	gcm, err := fs.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < 2+nonceSize {
		return nil, fmt.Errorf("storage: identity file too short")
	}
	version := binary.BigEndian.Uint16(data[0:2])
	if version != encryptionVersion {
		return nil, fmt.Errorf("storage: unsupported encryption version %d", version)
	}

	nonce := data[2 : 2+nonceSize]
	ciphertext := data[2+nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// StoreIdentity persists the identity keypair, encrypted at rest.
func (fs *FileStore) StoreIdentity(public, private [32]byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	plaintext := make([]byte, 64)
	copy(plaintext[:32], public[:])
	copy(plaintext[32:], private[:])
	defer crypto.ZeroBytes(plaintext)

	return fs.writeEncrypted(fs.identityFile, plaintext)
}

// LoadIdentity returns the persisted identity keypair, or ok=false if
// none has been stored yet.
func (fs *FileStore) LoadIdentity() (public, private [32]byte, ok bool, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	plaintext, err := fs.readEncrypted(fs.identityFile)
	if err != nil {
		if os.IsNotExist(err) {
			return public, private, false, nil
		}
		return public, private, false, err
	}
	if len(plaintext) != 64 {
		return public, private, false, fmt.Errorf("storage: corrupted identity record")
	}

	copy(public[:], plaintext[:32])
	copy(private[:], plaintext[32:])
	crypto.ZeroBytes(plaintext)
	return public, private, true, nil
}

type jsonMessage struct {
	ID        string `json:"id"` // hex-encoded 16 bytes
	PeerID    string `json:"peer_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Direction uint8  `json:"direction"`
	Status    uint8  `json:"status"`
}

// StoreMessage persists msg, replacing any existing record with the same
// ID. A sent message is written once by the send path with
// StatusPending and at most once more by a status update; this upsert
// behavior lets both calls target the same record.
func (fs *FileStore) StoreMessage(msg Message) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all, err := fs.readAllMessages()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range all {
		if existing.ID == msg.ID {
			all[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, msg)
	}
	return fs.writeAllMessages(all)
}

// LoadMessages returns every message stored for id, in insertion order.
func (fs *FileStore) LoadMessages(id peer.ID) ([]Message, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all, err := fs.readAllMessages()
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(all))
	for _, m := range all {
		if m.PeerID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (fs *FileStore) readAllMessages() ([]Message, error) {
	data, err := os.ReadFile(fs.messagesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read messages: %w", err)
	}

	var records []jsonMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage: parse messages: %w", err)
	}

	out := make([]Message, 0, len(records))
	for _, r := range records {
		var m Message
		if idBytes, err := hex.DecodeString(r.ID); err == nil && len(idBytes) == 16 {
			copy(m.ID[:], idBytes)
		}
		m.PeerID = peer.ID(r.PeerID)
		m.Text = r.Text
		m.Timestamp = r.Timestamp
		m.Direction = Direction(r.Direction)
		m.Status = Status(r.Status)
		out = append(out, m)
	}
	return out, nil
}

func (fs *FileStore) writeAllMessages(msgs []Message) error {
	records := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, jsonMessage{
			ID:        hex.EncodeToString(m.ID[:]),
			PeerID:    string(m.PeerID),
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Direction: uint8(m.Direction),
			Status:    uint8(m.Status),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("storage: marshal messages: %w", err)
	}
	return atomicWrite(fs.messagesFile, data)
}

// StoreDuplicateCache snapshots a duplicate cache's entries to disk.
func (fs *FileStore) StoreDuplicateCache(entries map[[16]byte]time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	records := make(map[string]int64, len(entries))
	for id, ts := range entries {
		records[fmt.Sprintf("%x", id)] = ts.Unix()
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("storage: marshal duplicate cache: %w", err)
	}
	return atomicWrite(fs.dupCacheFile, data)
}

// LoadDuplicateCache returns the last snapshot written by
// StoreDuplicateCache.
func (fs *FileStore) LoadDuplicateCache() (map[[16]byte]time.Time, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.dupCacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return map[[16]byte]time.Time{}, nil
		}
		return nil, fmt.Errorf("storage: read duplicate cache: %w", err)
	}

	var records map[string]int64
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage: parse duplicate cache: %w", err)
	}

	out := make(map[[16]byte]time.Time, len(records))
	for hexID, ts := range records {
		decoded, err := hex.DecodeString(hexID)
		if err != nil || len(decoded) != 16 {
			continue
		}
		var raw [16]byte
		copy(raw[:], decoded)
		out[raw] = time.Unix(ts, 0)
	}
	return out, nil
}

// StoreTrust persists a peer's verified flag.
func (fs *FileStore) StoreTrust(id peer.ID, verified bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	trust, err := fs.readTrust()
	if err != nil {
		return err
	}
	trust[string(id)] = verified

	data, err := json.Marshal(trust)
	if err != nil {
		return fmt.Errorf("storage: marshal trust: %w", err)
	}
	return atomicWrite(fs.trustFile, data)
}

// LoadTrust returns the last persisted verified flag for id, false if
// none was ever stored.
func (fs *FileStore) LoadTrust(id peer.ID) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	trust, err := fs.readTrust()
	if err != nil {
		return false, err
	}
	return trust[string(id)], nil
}

func (fs *FileStore) readTrust() (map[string]bool, error) {
	data, err := os.ReadFile(fs.trustFile)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("storage: read trust: %w", err)
	}

	var trust map[string]bool
	if err := json.Unmarshal(data, &trust); err != nil {
		return nil, fmt.Errorf("storage: parse trust: %w", err)
	}
	return trust, nil
}
